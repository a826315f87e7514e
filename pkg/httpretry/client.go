// Package httpretry wraps an HTTP client with bounded backoff on rate-limit
// responses.
//
// Only HTTP 429 is retried. Every other status, including 5xx, is handed back
// to the caller untouched, and when retries run out the last 429 response is
// returned instead of an error so callers always inspect the status themselves.
package httpretry

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Doer executes a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client retries rate-limited requests according to a BackoffPolicy.
type Client struct {
	doer   Doer
	policy BackoffPolicy
	sleep  SleepFunc
}

// Option configures a Client.
type Option func(*Client)

// WithDoer sets the underlying HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// WithPolicy sets the backoff policy.
func WithPolicy(p BackoffPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleep replaces the wait function, mainly for tests.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// New returns a Client using http.DefaultClient and DefaultPolicy unless
// overridden.
func New(opts ...Option) *Client {
	c := &Client{
		doer:   http.DefaultClient,
		policy: DefaultPolicy(),
		sleep:  Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchWithRetry sends req and, while the response is 429 and attempts
// remain, waits the policy's delay and sends an identical request again.
// At most maxRetries retries are made. Transport errors are returned
// immediately.
func (c *Client) FetchWithRetry(ctx context.Context, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		r, err := cloneRequest(ctx, req, attempt)
		if err != nil {
			return nil, err
		}

		resp, err := c.doer.Do(r)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		wait := c.policy.Delay(attempt, resp)
		discard(resp)

		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// Get issues a GET to url with headers through FetchWithRetry.
func (c *Client) Get(ctx context.Context, url string, headers http.Header, maxRetries int) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.FetchWithRetry(ctx, req, maxRetries)
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cloneRequest(ctx context.Context, req *http.Request, attempt int) (*http.Request, error) {
	r := req.Clone(ctx)
	if attempt > 0 && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		r.Body = body
	}
	return r, nil
}

func discard(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
