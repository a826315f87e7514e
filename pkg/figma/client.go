package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/httpretry"
)

const (
	// DefaultAPIBase is the public Figma REST endpoint.
	DefaultAPIBase = "https://api.figma.com/v1"

	// DefaultMaxRetries bounds retries on 429 responses.
	DefaultMaxRetries = 3
)

// Client is a Figma REST client. Every request goes through the rate-limit
// aware retry client; non-success statuses are translated into apperr kinds.
type Client struct {
	accessToken string
	baseURL     string
	maxRetries  int
	policy      httpretry.BackoffPolicy
	retry       *httpretry.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another API root, e.g. a test server.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithMaxRetries sets how many times a rate-limited request is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the wait between rate-limited attempts.
func WithBackoff(p httpretry.BackoffPolicy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// WithRetryClient replaces the retry client, transport and backoff included.
func WithRetryClient(r *httpretry.Client) ClientOption {
	return func(c *Client) { c.retry = r }
}

// NewClient creates a Figma API client with the provided personal access token.
// A missing token is a configuration error: nothing can be fetched without it.
func NewClient(accessToken string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, apperr.New(apperr.KindConfiguration, "Figma access token is not configured")
	}

	c := &Client{
		accessToken: accessToken,
		baseURL:     DefaultAPIBase,
		maxRetries:  DefaultMaxRetries,
		policy:      httpretry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.policy == nil {
		c.policy = httpretry.DefaultPolicy()
	}
	if c.retry == nil {
		transport := &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
			// Large file trees have produced HTTP/2 stream errors.
			ForceAttemptHTTP2: false,
		}
		c.retry = httpretry.New(
			httpretry.WithDoer(&http.Client{Timeout: 2 * time.Minute, Transport: transport}),
			httpretry.WithPolicy(c.policy),
		)
	}
	return c, nil
}

// GetFile retrieves the document tree of a file down to depth levels
// (depth <= 0 means the full tree).
func (c *Client) GetFile(ctx context.Context, fileKey string, depth int) (*FileResponse, error) {
	q := url.Values{}
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}

	var out FileResponse
	if err := c.getJSON(ctx, "/files/"+url.PathEscape(fileKey), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFileNodes retrieves specific nodes of a file.
func (c *Client) GetFileNodes(ctx context.Context, fileKey string, ids []string, depth int) (*NodesResponse, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	if depth > 0 {
		q.Set("depth", strconv.Itoa(depth))
	}

	var out NodesResponse
	if err := c.getJSON(ctx, "/files/"+url.PathEscape(fileKey)+"/nodes", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetImages asks Figma to render the given nodes and returns temporary image URLs.
func (c *Client) GetImages(ctx context.Context, fileKey string, ids []string, format string, scale float64) (*ImagesResponse, error) {
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("format", format)
	q.Set("scale", strconv.FormatFloat(scale, 'f', -1, 64))

	var out ImagesResponse
	if err := c.getJSON(ctx, "/images/"+url.PathEscape(fileKey), q, &out); err != nil {
		return nil, err
	}
	if out.Err != "" {
		return nil, apperr.New(apperr.KindUpstream, "Figma could not render images: "+out.Err)
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	reqURL := c.baseURL + path
	if len(q) > 0 {
		reqURL += "?" + q.Encode()
	}

	headers := http.Header{}
	headers.Set("X-Figma-Token", c.accessToken)
	headers.Set("Accept", "application/json")

	resp, err := c.retry.Get(ctx, reqURL, headers, c.maxRetries)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Could not reach the Figma API", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Failed to read Figma response", err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Wrap(apperr.KindUpstream, "Unexpected response from the Figma API", err)
	}
	return nil
}

// classifyStatus maps Figma status codes onto the error taxonomy.
func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	cause := fmt.Errorf("figma API status %d: %s", status, truncate(string(body), 300))
	switch status {
	case http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimit, "Figma rate limit reached. Please wait a minute and try again", cause)
	case http.StatusForbidden:
		return apperr.Wrap(apperr.KindPermission, "Access denied. Make sure the file is shared with the account that owns the Figma token", cause)
	case http.StatusUnauthorized:
		return apperr.Wrap(apperr.KindPermission, "The Figma access token is invalid or expired", cause)
	case http.StatusNotFound:
		return apperr.Wrap(apperr.KindValidation, "Figma file not found. Check the URL", cause)
	default:
		return apperr.Wrap(apperr.KindUpstream, fmt.Sprintf("Figma API error (status %d)", status), cause)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
