package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/audit"
)

type auditFunc func(ctx context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error)

func (f auditFunc) AuditScreen(ctx context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error) {
	return f(ctx, img, personaID, opts)
}

func makeFrames(n int) []Frame {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i] = Frame{Name: fmt.Sprintf("Screen %d", i), ImageURL: fmt.Sprintf("https://cdn.example/%d.png", i)}
	}
	return frames
}

// collect runs the dispatcher and records callbacks.
func collect(t *testing.T, auditor ScreenAuditor, frames []Frame, cfg Config) (map[int]ScreenAuditResult, []int) {
	t.Helper()
	var (
		mu    sync.Mutex
		got   = make(map[int]ScreenAuditResult)
		order []int
	)
	RunMultiScreenAudit(context.Background(), auditor, frames, "ux-designer", audit.Options{}, cfg, func(i int, r ScreenAuditResult) {
		mu.Lock()
		defer mu.Unlock()
		_, dup := got[i]
		assert.False(t, dup, "callback fired twice for index %d", i)
		got[i] = r
		order = append(order, i)
	})
	return got, order
}

func TestRunMultiScreenAudit_IsolatesFailures(t *testing.T) {
	frames := makeFrames(5)
	auditor := auditFunc(func(_ context.Context, img audit.Image, _ string, _ audit.Options) (*audit.AuditResult, error) {
		if img.URL == frames[2].ImageURL {
			return nil, apperr.New(apperr.KindUpstream, "AI analysis failed")
		}
		return &audit.AuditResult{OverallScore: 70}, nil
	})

	got, _ := collect(t, auditor, frames, Config{Concurrency: 3})
	require.Len(t, got, 5)

	for i := 0; i < 5; i++ {
		slot := got[i]
		assert.False(t, slot.IsLoading)
		assert.Equal(t, frames[i].Name, slot.ScreenName)
		assert.Equal(t, frames[i].ImageURL, slot.ScreenImageURL)
		if i == 2 {
			assert.Nil(t, slot.Result)
			assert.Equal(t, "AI analysis failed", slot.Error)
			continue
		}
		require.NotNil(t, slot.Result, "index %d", i)
		assert.Empty(t, slot.Error)
	}
}

func TestRunMultiScreenAudit_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	auditor := auditFunc(func(context.Context, audit.Image, string, audit.Options) (*audit.AuditResult, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return &audit.AuditResult{}, nil
	})

	got, _ := collect(t, auditor, makeFrames(12), Config{Concurrency: 3})
	assert.Len(t, got, 12)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

// A stuck item must not keep other workers from claiming later indices.
func TestRunMultiScreenAudit_CompletionOrder(t *testing.T) {
	frames := makeFrames(4)
	release := make(chan struct{})

	auditor := auditFunc(func(_ context.Context, img audit.Image, _ string, _ audit.Options) (*audit.AuditResult, error) {
		if img.URL == frames[0].ImageURL {
			<-release
		}
		return &audit.AuditResult{}, nil
	})

	var (
		mu    sync.Mutex
		order []int
	)
	RunMultiScreenAudit(context.Background(), auditor, frames, "", audit.Options{}, Config{Concurrency: 2}, func(i int, _ ScreenAuditResult) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, i)
		if len(order) == 3 {
			close(release)
		}
	})

	require.Len(t, order, 4)
	assert.Equal(t, 0, order[3], "slow first frame settles last")
}

func TestRunMultiScreenAudit_RecoversPanics(t *testing.T) {
	frames := makeFrames(3)
	auditor := auditFunc(func(_ context.Context, img audit.Image, _ string, _ audit.Options) (*audit.AuditResult, error) {
		if img.URL == frames[1].ImageURL {
			panic("boom")
		}
		return &audit.AuditResult{}, nil
	})

	got, _ := collect(t, auditor, frames, Config{Concurrency: 3})
	require.Len(t, got, 3)
	assert.Contains(t, got[1].Error, "boom")
	assert.Nil(t, got[1].Result)
	assert.NotNil(t, got[0].Result)
	assert.NotNil(t, got[2].Result)
}

func TestRunMultiScreenAudit_NilResultIsError(t *testing.T) {
	auditor := auditFunc(func(context.Context, audit.Image, string, audit.Options) (*audit.AuditResult, error) {
		return nil, nil
	})
	got, _ := collect(t, auditor, makeFrames(1), Config{})
	assert.NotEmpty(t, got[0].Error)
}

func TestRunMultiScreenAudit_PassesScreenName(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]string{}
	auditor := auditFunc(func(_ context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error) {
		mu.Lock()
		seen[img.URL] = opts.ScreenName + "|" + opts.Purpose + "|" + personaID
		mu.Unlock()
		return &audit.AuditResult{}, nil
	})

	frames := makeFrames(2)
	RunMultiScreenAudit(context.Background(), auditor, frames, "developer", audit.Options{Purpose: "checkout"}, Config{}, nil)
	assert.Equal(t, "Screen 0|checkout|developer", seen[frames[0].ImageURL])
	assert.Equal(t, "Screen 1|checkout|developer", seen[frames[1].ImageURL])
}

func TestRunMultiScreenAudit_NoFrames(t *testing.T) {
	called := false
	RunMultiScreenAudit(context.Background(), nil, nil, "", audit.Options{}, Config{}, func(int, ScreenAuditResult) { called = true })
	assert.False(t, called)
}

func TestTracker(t *testing.T) {
	frames := makeFrames(3)
	tr := NewTracker(frames)

	for _, s := range tr.Snapshot() {
		assert.True(t, s.IsLoading)
		assert.Nil(t, s.Result)
	}

	tr.Complete(1, ScreenAuditResult{ScreenName: "Screen 1", Error: "failed"})
	tr.Complete(1, ScreenAuditResult{ScreenName: "Screen 1", Result: &audit.AuditResult{}})
	tr.Complete(7, ScreenAuditResult{})

	snap := tr.Snapshot()
	assert.True(t, snap[0].IsLoading)
	assert.False(t, snap[1].IsLoading)
	assert.Equal(t, "failed", snap[1].Error, "settled slots never change")
	assert.Nil(t, snap[1].Result)

	settled, total := tr.Progress()
	assert.Equal(t, 1, settled)
	assert.Equal(t, 3, total)

	select {
	case <-tr.Done():
		t.Fatal("done before all slots settled")
	default:
	}

	tr.Complete(0, ScreenAuditResult{Result: &audit.AuditResult{}})
	tr.Complete(2, ScreenAuditResult{Result: &audit.AuditResult{}})

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("tracker not done")
	}
}

func TestTracker_WithDispatcher(t *testing.T) {
	frames := makeFrames(6)
	tr := NewTracker(frames)
	auditor := auditFunc(func(_ context.Context, img audit.Image, _ string, _ audit.Options) (*audit.AuditResult, error) {
		if img.URL == frames[4].ImageURL {
			return nil, errors.New("network down")
		}
		return &audit.AuditResult{OverallScore: 90}, nil
	})

	RunMultiScreenAudit(context.Background(), auditor, frames, "", audit.Options{}, Config{Concurrency: 3}, tr.Complete)
	<-tr.Done()

	snap := tr.Snapshot()
	require.Len(t, snap, 6)
	for i, s := range snap {
		assert.False(t, s.IsLoading)
		if i == 4 {
			assert.Equal(t, "An unexpected error occurred", s.Error)
			continue
		}
		assert.NotNil(t, s.Result)
	}
}
