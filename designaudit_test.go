package designaudit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellenic-development/design-audit/config"
	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/audit"
	"github.com/hellenic-development/design-audit/pkg/dispatcher"
	"github.com/hellenic-development/design-audit/pkg/exporter"
	"github.com/hellenic-development/design-audit/pkg/httpretry"
)

func fakeFigmaServer(t *testing.T, frames int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/files/"):
			var children []string
			for i := 1; i <= frames; i++ {
				children = append(children, fmt.Sprintf(`{"id":"1:%d","name":"Screen %d","type":"FRAME"}`, i, i))
			}
			fmt.Fprintf(w, `{"name":"Shop","document":{"id":"0:0","type":"DOCUMENT","children":[
				{"id":"0:1","type":"CANVAS","name":"Page","children":[%s]}]}}`, strings.Join(children, ","))
		case strings.HasPrefix(r.URL.Path, "/images/"):
			var parts []string
			for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
				parts = append(parts, fmt.Sprintf(`%q:"https://cdn.example/%s.png"`, id, strings.ReplaceAll(id, ":", "-")))
			}
			fmt.Fprintf(w, `{"err":null,"images":{%s}}`, strings.Join(parts, ","))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func fakeVisionServer(t *testing.T, failFor string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if failFor != "" && strings.Contains(string(body), failFor) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"overallScore\":77,\"summary\":\"ok\",\"riskLevel\":\"Low\",\"categories\":[]}"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testOptions(figmaURL, visionURL string) Options {
	return Options{
		FigmaToken:   "figd_test",
		FigmaAPIBase: figmaURL,
		BatchDelay:   -1,
		RetryPolicy:  httpretry.Fixed{},
		VisionAPIKey: "sk-test",
		VisionAPIURL: visionURL,
	}
}

func TestExtractFigmaFrames(t *testing.T) {
	figmaSrv := fakeFigmaServer(t, 14)
	opts := testOptions(figmaSrv.URL, "")
	opts.MaxFrames = 8

	svc, err := New(opts)
	require.NoError(t, err)

	res, err := svc.ExtractFigmaFrames(context.Background(), "https://www.figma.com/design/ABC123/Shop")
	require.NoError(t, err)

	assert.Equal(t, "Shop", res.FileName)
	assert.Equal(t, "ABC123", res.FileKey)
	assert.Equal(t, 14, res.TotalFrames)
	assert.Equal(t, 8, res.ExportedFrames)
	require.NotNil(t, res.Frames[0].ImageURL)
	assert.Equal(t, "https://cdn.example/1-1.png", *res.Frames[0].ImageURL)
}

func TestExtractFigmaFrames_FailsFastWithoutNetwork(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	noToken := testOptions(srv.URL, "")
	noToken.FigmaToken = ""
	svc, err := New(noToken)
	require.NoError(t, err, "missing credentials must not fail construction")

	_, err = svc.ExtractFigmaFrames(context.Background(), "https://www.figma.com/design/ABC123/Shop")
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	svc, err = New(testOptions(srv.URL, ""))
	require.NoError(t, err)
	_, err = svc.ExtractFigmaFrames(context.Background(), "https://example.com/not-figma")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Zero(t, calls)
}

func TestAuditDesign(t *testing.T) {
	visionSrv := fakeVisionServer(t, "")
	svc, err := New(testOptions("", visionSrv.URL))
	require.NoError(t, err)

	res, err := svc.AuditDesign(context.Background(), audit.Image{URL: "https://cdn.example/a.png"}, "developer", audit.Options{})
	require.NoError(t, err)
	assert.Equal(t, audit.Score(77), res.OverallScore)
	assert.Equal(t, audit.RiskLow, res.RiskLevel)
}

func TestAuditDesign_NoVisionKey(t *testing.T) {
	opts := testOptions("", "")
	opts.VisionAPIKey = ""
	svc, err := New(opts)
	require.NoError(t, err)

	_, err = svc.AuditDesign(context.Background(), audit.Image{URL: "https://cdn.example/a.png"}, "", audit.Options{})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestAuditMultiScreen(t *testing.T) {
	visionSrv := fakeVisionServer(t, "cdn.example/2.png")
	svc, err := New(testOptions("", visionSrv.URL))
	require.NoError(t, err)

	frames := make([]dispatcher.Frame, 5)
	for i := range frames {
		frames[i] = dispatcher.Frame{Name: fmt.Sprintf("S%d", i), ImageURL: fmt.Sprintf("https://cdn.example/%d.png", i)}
	}

	tracker := dispatcher.NewTracker(frames)
	var mu sync.Mutex
	calls := 0

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // a gone caller does not stop the run
	svc.AuditMultiScreen(ctx, frames, "ux-designer", audit.Options{}, func(i int, r dispatcher.ScreenAuditResult) {
		mu.Lock()
		calls++
		mu.Unlock()
		tracker.Complete(i, r)
	})

	assert.Equal(t, 5, calls)
	snap := tracker.Snapshot()
	for i, s := range snap {
		if i == 2 {
			assert.Nil(t, s.Result)
			assert.NotEmpty(t, s.Error)
			continue
		}
		require.NotNil(t, s.Result, "index %d: %s", i, s.Error)
		assert.Equal(t, audit.Score(77), s.Result.OverallScore)
	}
}

func TestPersonas(t *testing.T) {
	svc, err := New(Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, svc.Personas())
	assert.Equal(t, "ux-designer", svc.DefaultPersona())
	assert.Equal(t, dispatcher.DefaultConcurrency, svc.Concurrency())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Figma: config.FigmaConfig{
			AccessToken:   "figd",
			MaxFrames:     12,
			BatchSize:     4,
			MaxRetries:    0,
			RetryStrategy: "linear",
		},
		Audit: config.AuditConfig{Concurrency: 2},
	}

	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 12, opts.MaxFrames)
	assert.Equal(t, -1, opts.MaxRetries)
	assert.Equal(t, time.Duration(-1), opts.BatchDelay)
	assert.Zero(t, exporterConfig(opts).BatchDelay, "FIGMA_BATCH_DELAY=0 turns pacing off")
	assert.IsType(t, httpretry.Linear{}, opts.RetryPolicy)
	assert.NotNil(t, opts.Heuristics)

	cfg.Figma.BatchDelay = 250 * time.Millisecond
	opts, err = OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, exporterConfig(opts).BatchDelay)
	assert.Equal(t, exporter.DefaultConfig().BatchDelay, exporterConfig(Options{}).BatchDelay)

	cfg.Figma.RetryStrategy = "chaotic"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
