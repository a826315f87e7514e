package httpretry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return nil
}

func (r *recordedSleeps) total() time.Duration {
	var sum time.Duration
	for _, d := range r.waits {
		sum += d
	}
	return sum
}

func TestFetchWithRetry_ReturnsFinal429(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"status":429,"err":"Rate limit exceeded"}`))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := New(
		WithPolicy(Exponential{Base: 100 * time.Millisecond}),
		WithSleep(sleeps.sleep),
	)

	resp, err := client.Get(context.Background(), server.URL, nil, 3)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls), "one initial attempt plus three retries")
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, sleeps.waits)
	assert.Equal(t, 700*time.Millisecond, sleeps.total())

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Rate limit exceeded")
}

func TestFetchWithRetry_RecoversAfterRateLimit(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := New(WithPolicy(Linear{Base: time.Second}), WithSleep(sleeps.sleep))

	resp, err := client.Get(context.Background(), server.URL, nil, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.waits)
}

func TestFetchWithRetry_DoesNotRetryOtherStatuses(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusInternalServerError, http.StatusBadGateway} {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(status)
		}))

		sleeps := &recordedSleeps{}
		client := New(WithSleep(sleeps.sleep))

		resp, err := client.Get(context.Background(), server.URL, nil, 3)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, status, resp.StatusCode)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Empty(t, sleeps.waits)
		server.Close()
	}
}

func TestFetchWithRetry_ReplaysBodyAndHeaders(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"ping":true}`, string(body))
		assert.Equal(t, "secret", r.Header.Get("X-Figma-Token"))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL, strings.NewReader(`{"ping":true}`))
	require.NoError(t, err)
	req.Header.Set("X-Figma-Token", "secret")

	sleeps := &recordedSleeps{}
	client := New(WithSleep(sleeps.sleep))

	resp, err := client.FetchWithRetry(context.Background(), req, 2)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchWithRetry_ZeroRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	sleeps := &recordedSleeps{}
	client := New(WithSleep(sleeps.sleep))

	resp, err := client.Get(context.Background(), server.URL, nil, 0)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Empty(t, sleeps.waits)
}

func TestFetchWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	client := New(WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	resp, err := client.Get(ctx, server.URL, nil, 3)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchWithRetry_TransportError(t *testing.T) {
	client := New(WithSleep((&recordedSleeps{}).sleep))

	resp, err := client.Get(context.Background(), "http://127.0.0.1:1/unreachable", nil, 3)
	assert.Nil(t, resp)
	assert.Error(t, err)
}
