package designaudit

import (
	"context"
	"time"

	"github.com/hellenic-development/design-audit/config"
	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/audit"
	"github.com/hellenic-development/design-audit/pkg/dispatcher"
	"github.com/hellenic-development/design-audit/pkg/exporter"
	"github.com/hellenic-development/design-audit/pkg/figma"
	"github.com/hellenic-development/design-audit/pkg/heuristics"
	"github.com/hellenic-development/design-audit/pkg/httpretry"
	"github.com/hellenic-development/design-audit/pkg/logctx"
	"github.com/hellenic-development/design-audit/pkg/vision"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "dev"

// Options configures a Service. Zero values select the defaults.
type Options struct {
	FigmaToken   string
	FigmaAPIBase string
	MaxFrames    int           // default 10
	BatchSize    int           // default 5
	BatchDelay   time.Duration // default 1.5s, negative disables pacing
	MaxRetries   int           // default 3, negative disables retries
	RetryPolicy  httpretry.BackoffPolicy

	VisionAPIKey string
	VisionAPIURL string
	VisionModel  string

	Concurrency int // default 3

	Heuristics *heuristics.Library // nil = embedded corpus
	Cache      exporter.Cache      // nil = no caching
	Logger     Logger              // nil = no logging
}

// Logger receives progress messages. A nil Logger means silent operation.
// A logger attached to the call's context with logctx.With takes precedence.
type Logger = logctx.Logger

// OptionsFromConfig maps loaded configuration onto Options. The heuristics
// file, if any, is loaded here.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := httpretry.ParsePolicy(cfg.Figma.RetryStrategy, cfg.Figma.RetryBase)
	if err != nil {
		return Options{}, err
	}

	lib, err := heuristics.LoadFile(cfg.Audit.HeuristicsFile)
	if err != nil {
		return Options{}, apperr.Wrap(apperr.KindConfiguration, "Could not load the heuristics corpus", err)
	}

	// A zero in the environment means "off", while a zero Option means "default".
	maxRetries := cfg.Figma.MaxRetries
	if maxRetries == 0 {
		maxRetries = -1
	}
	batchDelay := cfg.Figma.BatchDelay
	if batchDelay == 0 {
		batchDelay = -1
	}

	return Options{
		FigmaToken:   cfg.Figma.AccessToken,
		FigmaAPIBase: cfg.Figma.APIBase,
		MaxFrames:    cfg.Figma.MaxFrames,
		BatchSize:    cfg.Figma.BatchSize,
		BatchDelay:   batchDelay,
		MaxRetries:   maxRetries,
		RetryPolicy:  policy,
		VisionAPIKey: cfg.Vision.APIKey,
		VisionAPIURL: cfg.Vision.APIURL,
		VisionModel:  cfg.Vision.Model,
		Concurrency:  cfg.Audit.Concurrency,
		Heuristics:   lib,
	}, nil
}

// Service is the boundary the HTTP server and the CLI call into.
type Service struct {
	exporter    *exporter.Exporter
	figmaErr    error
	auditor     *audit.Auditor
	lib         *heuristics.Library
	concurrency int
	logger      Logger
}

// New wires a Service. Missing credentials do not fail New; the operations
// that need them return a configuration error before any network call.
func New(opts Options) (*Service, error) {
	lib := opts.Heuristics
	if lib == nil {
		var err error
		if lib, err = heuristics.Load(); err != nil {
			return nil, apperr.Wrap(apperr.KindConfiguration, "Could not load the heuristics corpus", err)
		}
	}

	s := &Service{
		lib:         lib,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
	if s.concurrency <= 0 {
		s.concurrency = dispatcher.DefaultConcurrency
	}

	s.exporter, s.figmaErr = newExporter(opts)

	var model audit.Model
	if opts.VisionAPIKey != "" {
		vc, err := vision.NewClient(opts.VisionAPIKey, vision.WithAPIURL(opts.VisionAPIURL), vision.WithModel(opts.VisionModel))
		if err != nil {
			return nil, err
		}
		model = vc
	}
	s.auditor = audit.NewAuditor(model, lib, audit.WithLogger(opts.Logger))

	return s, nil
}

func newExporter(opts Options) (*exporter.Exporter, error) {
	clientOpts := []figma.ClientOption{figma.WithBackoff(opts.RetryPolicy)}
	if opts.FigmaAPIBase != "" {
		clientOpts = append(clientOpts, figma.WithBaseURL(opts.FigmaAPIBase))
	}
	switch {
	case opts.MaxRetries > 0:
		clientOpts = append(clientOpts, figma.WithMaxRetries(opts.MaxRetries))
	case opts.MaxRetries < 0:
		clientOpts = append(clientOpts, figma.WithMaxRetries(0))
	}

	client, err := figma.NewClient(opts.FigmaToken, clientOpts...)
	if err != nil {
		return nil, err
	}

	exOpts := []exporter.Option{exporter.WithLogger(opts.Logger)}
	if opts.Cache != nil {
		exOpts = append(exOpts, exporter.WithCache(opts.Cache))
	}
	return exporter.New(client, exporterConfig(opts), exOpts...), nil
}

func exporterConfig(opts Options) exporter.Config {
	cfg := exporter.DefaultConfig()
	if opts.MaxFrames > 0 {
		cfg.MaxFrames = opts.MaxFrames
	}
	if opts.BatchSize > 0 {
		cfg.BatchSize = opts.BatchSize
	}
	switch {
	case opts.BatchDelay > 0:
		cfg.BatchDelay = opts.BatchDelay
	case opts.BatchDelay < 0:
		cfg.BatchDelay = 0
	}
	return cfg
}

// ExtractFigmaFrames parses a Figma URL and exports its top-level frames.
func (s *Service) ExtractFigmaFrames(ctx context.Context, figmaURL string) (*exporter.Result, error) {
	if s.figmaErr != nil {
		return nil, s.figmaErr
	}

	h, err := figma.ParseFileHandle(figmaURL)
	if err != nil {
		return nil, err
	}
	s.logInfo(ctx, "File key: %s", h.FileKey)
	if h.NodeID != "" {
		s.logInfo(ctx, "Pinned node: %s", h.NodeID)
	}

	return s.exporter.ExportFrames(ctx, h)
}

// AuditDesign audits a single image.
func (s *Service) AuditDesign(ctx context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error) {
	return s.auditor.AuditScreen(ctx, img, personaID, opts)
}

// AuditMultiScreen audits frames concurrently and reports each one through
// onComplete as it settles. It returns once every frame has settled. The run
// is detached from ctx cancellation: a caller that goes away stops listening
// but in-flight audits still finish.
func (s *Service) AuditMultiScreen(ctx context.Context, frames []dispatcher.Frame, personaID string, opts audit.Options, onComplete dispatcher.CompleteFunc) {
	s.logInfo(ctx, "Auditing %d screen(s) with %d worker(s)", len(frames), min(s.concurrency, len(frames)))
	dispatcher.RunMultiScreenAudit(context.WithoutCancel(ctx), s.auditor, frames, personaID, opts,
		dispatcher.Config{Concurrency: s.concurrency}, onComplete)
}

// Personas returns the available evaluation personas.
func (s *Service) Personas() []heuristics.Persona {
	return s.lib.Personas
}

// DefaultPersona returns the id used for unknown persona ids.
func (s *Service) DefaultPersona() string {
	return s.lib.DefaultPersona
}

// Concurrency returns the multi-screen worker count.
func (s *Service) Concurrency() int { return s.concurrency }

func (s *Service) logInfo(ctx context.Context, f string, a ...any) {
	if l := logctx.From(ctx, s.logger); l != nil {
		l.Infof(f, a...)
	}
}
