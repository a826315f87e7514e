// Package exporter turns a Figma file into a bounded, ordered list of frames
// with rendered image URLs.
//
// The pipeline is strictly sequential: fetch the tree, extract frames, cap the
// list, then render in paced batches. A batch that fails is skipped and its
// frames are dropped from the result; a batch that is still rate limited after
// retries aborts the export with a rate-limit error so the caller can ask the
// user to wait.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/figma"
	"github.com/hellenic-development/design-audit/pkg/logctx"
)

// FigmaAPI is the subset of the Figma client the exporter needs.
type FigmaAPI interface {
	GetFile(ctx context.Context, fileKey string, depth int) (*figma.FileResponse, error)
	GetFileNodes(ctx context.Context, fileKey string, ids []string, depth int) (*figma.NodesResponse, error)
	GetImages(ctx context.Context, fileKey string, ids []string, format string, scale float64) (*figma.ImagesResponse, error)
}

// Cache stores finished export results. Implementations must treat failures
// as misses; the exporter never fails because of its cache.
type Cache interface {
	Get(ctx context.Context, h figma.FileHandle) (*Result, bool)
	Set(ctx context.Context, h figma.FileHandle, r *Result)
}

// Logger receives progress messages. A nil Logger means silent operation.
// A logger carried by the call's context takes precedence.
type Logger = logctx.Logger

// Config holds the export tuning knobs.
type Config struct {
	MaxFrames  int           // frames kept after extraction
	BatchSize  int           // node ids per render request
	BatchDelay time.Duration // minimum gap between render requests, 0 disables pacing
	Scale      float64       // render scale
	Format     string        // png or jpg
	Depth      int           // tree depth fetched from the file endpoint
}

// DefaultConfig returns the canonical export settings.
func DefaultConfig() Config {
	return Config{
		MaxFrames:  10,
		BatchSize:  5,
		BatchDelay: 1500 * time.Millisecond,
		Scale:      1,
		Format:     "png",
		Depth:      2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxFrames <= 0 {
		c.MaxFrames = d.MaxFrames
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.BatchDelay < 0 {
		c.BatchDelay = 0
	}
	if c.Scale <= 0 {
		c.Scale = d.Scale
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Depth <= 0 {
		c.Depth = d.Depth
	}
	return c
}

// Result is the outcome of an export. TotalFrames counts frames before the
// cap; ExportedFrames equals len(Frames).
type Result struct {
	FileName       string                  `json:"fileName"`
	FileKey        string                  `json:"fileKey"`
	Frames         []figma.FrameDescriptor `json:"frames"`
	TotalFrames    int                     `json:"totalFrames"`
	ExportedFrames int                     `json:"exportedFrames"`
	Warnings       []string                `json:"warnings,omitempty"`
}

// Exporter runs the export pipeline.
type Exporter struct {
	api    FigmaAPI
	cfg    Config
	cache  Cache
	logger Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithCache enables result caching.
func WithCache(c Cache) Option {
	return func(e *Exporter) { e.cache = c }
}

// WithLogger sets the progress logger.
func WithLogger(l Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// New creates an Exporter over api.
func New(api FigmaAPI, cfg Config, opts ...Option) *Exporter {
	e := &Exporter{api: api, cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the effective configuration.
func (e *Exporter) Config() Config { return e.cfg }

// ExportFrames fetches the file, extracts its top-level frames and resolves
// a rendered image for each of them.
func (e *Exporter) ExportFrames(ctx context.Context, h figma.FileHandle) (*Result, error) {
	if strings.TrimSpace(h.FileKey) == "" {
		return nil, apperr.New(apperr.KindValidation, "A Figma file key is required")
	}

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, h); ok {
			e.logInfo(ctx, "Using cached export for %s", h.FileKey)
			return cached, nil
		}
	}

	e.logInfo(ctx, "Fetching file tree for %s...", h.FileKey)
	fileName, frames, err := e.collect(ctx, h)
	if err != nil {
		return nil, err
	}

	total := len(frames)
	if total == 0 {
		return nil, apperr.New(apperr.KindNoContent, "No frames found in this file. Make sure your pages contain top-level frames, components or sections")
	}
	if total > e.cfg.MaxFrames {
		e.logInfo(ctx, "Found %d frames, exporting the first %d", total, e.cfg.MaxFrames)
		frames = frames[:e.cfg.MaxFrames]
	} else {
		e.logInfo(ctx, "Found %d frame(s)", total)
	}

	urls, warnings, err := e.render(ctx, h.FileKey, frames)
	if err != nil {
		return nil, err
	}

	exported := make([]figma.FrameDescriptor, 0, len(frames))
	for _, f := range frames {
		u, ok := urls[f.ID]
		if !ok {
			continue
		}
		f.ImageURL = &u
		exported = append(exported, f)
	}

	if len(exported) == 0 {
		return nil, apperr.New(apperr.KindExportFailed, "Figma did not return any images for the selected frames. Please try again")
	}
	if len(exported) < len(frames) {
		warnings = append(warnings, fmt.Sprintf("exported %d of %d frames", len(exported), len(frames)))
		e.logWarn(ctx, "Exported %d of %d frames", len(exported), len(frames))
	}

	result := &Result{
		FileName:       fileName,
		FileKey:        h.FileKey,
		Frames:         exported,
		TotalFrames:    total,
		ExportedFrames: len(exported),
		Warnings:       warnings,
	}

	if e.cache != nil {
		e.cache.Set(ctx, h, result)
	}
	return result, nil
}

// collect fetches the tree (or the pinned node) and extracts frames in
// document order.
func (e *Exporter) collect(ctx context.Context, h figma.FileHandle) (string, []figma.FrameDescriptor, error) {
	if h.NodeID == "" {
		file, err := e.api.GetFile(ctx, h.FileKey, e.cfg.Depth)
		if err != nil {
			return "", nil, err
		}

		var frames []figma.FrameDescriptor
		for i := range file.Document.Children {
			frames = append(frames, figma.ExtractFrames(&file.Document.Children[i])...)
		}
		return file.Name, frames, nil
	}

	nodes, err := e.api.GetFileNodes(ctx, h.FileKey, []string{h.NodeID}, e.cfg.Depth)
	if err != nil {
		return "", nil, err
	}
	data, ok := nodes.Nodes[h.NodeID]
	if !ok || data == nil {
		return "", nil, apperr.New(apperr.KindValidation, fmt.Sprintf("Node %s was not found in this file", h.NodeID))
	}

	node := &data.Document
	if figma.IsExportable(node.Type) {
		return nodes.Name, []figma.FrameDescriptor{{ID: node.ID, Name: node.Name, NodeID: node.ID}}, nil
	}
	return nodes.Name, figma.ExtractFrames(node), nil
}

// render requests images batch by batch, pacing requests with a limiter.
func (e *Exporter) render(ctx context.Context, fileKey string, frames []figma.FrameDescriptor) (map[string]string, []string, error) {
	limit := rate.Inf
	if e.cfg.BatchDelay > 0 {
		limit = rate.Every(e.cfg.BatchDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	urls := make(map[string]string, len(frames))
	var warnings []string

	batches := (len(frames) + e.cfg.BatchSize - 1) / e.cfg.BatchSize
	for i := 0; i < len(frames); i += e.cfg.BatchSize {
		end := min(i+e.cfg.BatchSize, len(frames))
		batch := frames[i:end]
		n := i/e.cfg.BatchSize + 1

		if err := limiter.Wait(ctx); err != nil {
			return nil, nil, apperr.Wrap(apperr.KindUpstream, "Export was interrupted", err)
		}

		ids := make([]string, len(batch))
		for j, f := range batch {
			ids[j] = f.NodeID
		}

		e.logInfo(ctx, "Rendering batch %d/%d (%d frames)...", n, batches, len(ids))
		resp, err := e.api.GetImages(ctx, fileKey, ids, e.cfg.Format, e.cfg.Scale)
		if err != nil {
			if errors.Is(err, apperr.ErrRateLimit) {
				e.logError(ctx, "Batch %d/%d rate limited, aborting export", n, batches)
				return nil, nil, err
			}
			e.logWarn(ctx, "Batch %d/%d failed: %v", n, batches, err)
			warnings = append(warnings, fmt.Sprintf("batch %d/%d failed: %s", n, batches, apperr.Message(err)))
			continue
		}

		for id, u := range resp.Images {
			if u != nil && *u != "" {
				urls[id] = *u
			}
		}
	}

	return urls, warnings, nil
}

func (e *Exporter) logInfo(ctx context.Context, f string, a ...any) {
	if l := logctx.From(ctx, e.logger); l != nil {
		l.Infof(f, a...)
	}
}

func (e *Exporter) logWarn(ctx context.Context, f string, a ...any) {
	if l := logctx.From(ctx, e.logger); l != nil {
		l.Warnf(f, a...)
	}
}

func (e *Exporter) logError(ctx context.Context, f string, a ...any) {
	if l := logctx.From(ctx, e.logger); l != nil {
		l.Errorf(f, a...)
	}
}
