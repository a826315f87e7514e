// Package audit runs one screen through the vision model and turns its
// answer into a structured AuditResult.
//
// AuditScreen never fails because of unparseable model output; such output
// becomes FallbackResult. Configuration, validation and provider failures are
// returned as apperr errors.
package audit

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/heuristics"
	"github.com/hellenic-development/design-audit/pkg/logctx"
	"github.com/hellenic-development/design-audit/pkg/sanitizer"
	"github.com/hellenic-development/design-audit/pkg/vision"
)

const defaultIcon = "circle"

// Model is the vision gateway. *vision.Client implements it.
type Model interface {
	Complete(ctx context.Context, req vision.ChatRequest) (string, error)
}

// Logger receives diagnostic messages. A nil Logger means silent operation.
type Logger = logctx.Logger

// Options is the per-request context merged into the prompt.
type Options struct {
	Fidelity   string `json:"fidelity,omitempty"`   // wireframe, low, high
	Purpose    string `json:"purpose,omitempty"`    // what the screen is for
	ScreenName string `json:"screenName,omitempty"` // optional label
}

// Image is either an inline data URL or an http(s) URL the model can fetch.
type Image struct {
	URL string `json:"url"`
}

// IsInline reports whether the image is embedded as a data URL.
func (i Image) IsInline() bool {
	return strings.HasPrefix(i.URL, "data:")
}

func (i Image) validate() error {
	u := strings.TrimSpace(i.URL)
	switch {
	case u == "":
		return apperr.New(apperr.KindValidation, "An image is required")
	case strings.HasPrefix(u, "data:image/"):
		return nil
	case strings.HasPrefix(u, "https://"), strings.HasPrefix(u, "http://"):
		return nil
	default:
		return apperr.New(apperr.KindValidation, "The image must be an uploaded image or an http(s) URL")
	}
}

// ImageFromBytes sniffs the content type of data and wraps it as a data URL.
func ImageFromBytes(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, apperr.New(apperr.KindValidation, "The uploaded image is empty")
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, apperr.New(apperr.KindValidation, "Unsupported file type "+mt.String()+". Upload a PNG, JPEG, GIF or WebP image")
	}
	return Image{URL: "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data)}, nil
}

// Auditor audits single screens.
type Auditor struct {
	model     Model
	lib       *heuristics.Library
	maxTokens int
	logger    Logger
}

// AuditorOption configures an Auditor.
type AuditorOption func(*Auditor)

// WithLogger sets the diagnostic logger.
func WithLogger(l Logger) AuditorOption {
	return func(a *Auditor) { a.logger = l }
}

// WithMaxTokens bounds the completion length.
func WithMaxTokens(n int) AuditorOption {
	return func(a *Auditor) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// NewAuditor creates an Auditor. A nil model is allowed; every audit then
// fails with a configuration error before any network call.
func NewAuditor(model Model, lib *heuristics.Library, opts ...AuditorOption) *Auditor {
	a := &Auditor{model: model, lib: lib, maxTokens: 4096}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AuditScreen sends img with the persona's prompt to the model and returns
// the parsed result, or FallbackResult when the answer cannot be recovered.
func (a *Auditor) AuditScreen(ctx context.Context, img Image, personaID string, opts Options) (*AuditResult, error) {
	if a.model == nil {
		return nil, apperr.New(apperr.KindConfiguration, "Vision API key is not configured")
	}
	if err := img.validate(); err != nil {
		return nil, err
	}

	persona := a.lib.Persona(personaID)
	req := vision.ChatRequest{
		MaxTokens:   a.maxTokens,
		Temperature: 0.2,
		Messages: []vision.Message{
			{Role: "system", Content: BuildSystemPrompt(a.lib, persona, opts)},
			{Role: "user", Content: []vision.ContentPart{
				{Type: vision.PartText, Text: userPrompt(opts)},
				{Type: vision.PartImage, ImageURL: &vision.ImageURL{URL: strings.TrimSpace(img.URL), Detail: "high"}},
			}},
		},
	}

	a.logInfo(ctx, "Auditing %s as %s", screenLabel(opts), persona.ID)
	raw, err := a.model.Complete(ctx, req)
	if err != nil {
		a.logError(ctx, "Audit of %s failed: %v", screenLabel(opts), err)
		return nil, err
	}

	var result AuditResult
	stage, ok := sanitizer.Decode(raw, &result)
	if !ok {
		a.logWarn(ctx, "Could not parse model output for %s (%d bytes), returning fallback", screenLabel(opts), len(raw))
		return FallbackResult(), nil
	}
	if stage != sanitizer.StageDirectParse {
		a.logInfo(ctx, "Recovered model output for %s via %s", screenLabel(opts), stage)
	}

	a.normalize(&result)
	return &result, nil
}

// normalize fills what the rendering layer relies on: non-nil slices, issue
// ids, category names on issues and category icons. Scores are left as sent.
func (a *Auditor) normalize(r *AuditResult) {
	r.RiskLevel = normalizeRisk(r.RiskLevel)
	if r.Categories == nil {
		r.Categories = []Category{}
	}

	for ci := range r.Categories {
		c := &r.Categories[ci]
		c.Name = strings.TrimSpace(c.Name)
		if c.Icon == "" {
			c.Icon = a.lib.Icon(c.Name)
		}
		if c.Icon == "" {
			c.Icon = defaultIcon
		}
		if c.Issues == nil {
			c.Issues = []Issue{}
		}

		for ii := range c.Issues {
			is := &c.Issues[ii]
			if is.ID == "" {
				is.ID = uuid.NewString()
			}
			if is.Category == "" {
				is.Category = c.Name
			}
			is.Severity = normalizeSeverity(is.Severity)
		}
	}
}

func screenLabel(opts Options) string {
	if opts.ScreenName != "" {
		return opts.ScreenName
	}
	return "screen"
}

// The context's logger, when there is one, wins over the configured one.
func (a *Auditor) logInfo(ctx context.Context, f string, args ...any) {
	if l := logctx.From(ctx, a.logger); l != nil {
		l.Infof(f, args...)
	}
}

func (a *Auditor) logWarn(ctx context.Context, f string, args ...any) {
	if l := logctx.From(ctx, a.logger); l != nil {
		l.Warnf(f, args...)
	}
}

func (a *Auditor) logError(ctx context.Context, f string, args ...any) {
	if l := logctx.From(ctx, a.logger); l != nil {
		l.Errorf(f, args...)
	}
}
