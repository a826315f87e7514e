// Package vision talks to an OpenAI-compatible chat completion gateway that
// accepts images alongside text.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hellenic-development/design-audit/pkg/apperr"
)

const (
	DefaultAPIURL = "https://api.openai.com/v1/chat/completions"
	DefaultModel  = "gpt-4o"
)

// Message content parts.
const (
	PartText  = "text"
	PartImage = "image_url"
)

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by http(s) URL or inline data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// Message is a chat message. Content is either a string or []ContentPart.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ChatRequest is the completion payload. Model defaults to the client's model.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Doer executes HTTP requests.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a chat completion client.
type Client struct {
	apiKey string
	apiURL string
	model  string
	doer   Doer
}

// Option configures a Client.
type Option func(*Client)

// WithAPIURL overrides DefaultAPIURL.
func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

// WithModel overrides DefaultModel.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithDoer replaces the HTTP client.
func WithDoer(d Doer) Option {
	return func(c *Client) { c.doer = d }
}

// NewClient creates a client. A missing key is a configuration error.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.New(apperr.KindConfiguration, "Vision API key is not configured")
	}
	c := &Client{
		apiKey: apiKey,
		apiURL: DefaultAPIURL,
		model:  DefaultModel,
		doer:   &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the model used when a request does not name one.
func (c *Client) Model() string { return c.model }

// Complete sends req and returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, "Could not encode the analysis request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", apperr.Wrap(apperr.KindConfiguration, "Invalid vision API URL", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.doer.Do(httpReq)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "AI analysis failed", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "AI analysis failed", err)
	}

	if err := classifyStatus(resp.StatusCode, respBytes); err != nil {
		return "", err
	}

	var out chatResponse
	if err := json.Unmarshal(respBytes, &out); err != nil {
		return "", apperr.Wrap(apperr.KindUpstream, "AI analysis failed", err)
	}
	if out.Error.Message != "" {
		return "", apperr.Wrap(apperr.KindUpstream, "AI analysis failed", fmt.Errorf("gateway error: %s", out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", apperr.New(apperr.KindUpstream, "AI analysis failed: empty response")
	}
	return out.Choices[0].Message.Content, nil
}

func classifyStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 300 {
		snippet = snippet[:300] + "..."
	}
	cause := fmt.Errorf("vision API status %d: %s", status, snippet)

	switch status {
	case http.StatusTooManyRequests:
		return apperr.Wrap(apperr.KindRateLimit, "Rate limit exceeded. Please wait a moment and try again", cause)
	case http.StatusPaymentRequired:
		return apperr.Wrap(apperr.KindQuota, "AI credits exhausted. Please add credits to continue", cause)
	default:
		return apperr.Wrap(apperr.KindUpstream, "AI analysis failed", cause)
	}
}
