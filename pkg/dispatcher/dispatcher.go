// Package dispatcher audits many screens with a fixed number of workers.
//
// Completion order is not input order. Callers that need input order keep
// results by index, for example with a Tracker.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/audit"
)

// DefaultConcurrency is the number of audits in flight at once.
const DefaultConcurrency = 3

// Config tunes a run.
type Config struct {
	Concurrency int
}

// ScreenAuditor audits one screen. *audit.Auditor implements it.
type ScreenAuditor interface {
	AuditScreen(ctx context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error)
}

// Frame is one screen to audit.
type Frame struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// ScreenAuditResult is the slot for one frame. A pending slot has IsLoading
// set; a settled slot has exactly one of Result and Error.
type ScreenAuditResult struct {
	ScreenName     string             `json:"screenName"`
	ScreenImageURL string             `json:"screenImageUrl"`
	Result         *audit.AuditResult `json:"result"`
	IsLoading      bool               `json:"isLoading"`
	Error          string             `json:"error,omitempty"`
}

// Pending returns the initial slot for f.
func Pending(f Frame) ScreenAuditResult {
	return ScreenAuditResult{ScreenName: f.Name, ScreenImageURL: f.ImageURL, IsLoading: true}
}

// Settled reports whether the slot reached its final state.
func (r ScreenAuditResult) Settled() bool { return !r.IsLoading }

// CompleteFunc is called once per frame index as soon as it settles.
type CompleteFunc func(index int, result ScreenAuditResult)

// RunMultiScreenAudit audits frames with min(cfg.Concurrency, len(frames))
// workers and calls onScreenComplete exactly once per index, in completion
// order. A failing frame becomes an error slot and does not stop the run.
// It returns once every frame has settled.
//
// The run has no cancellation of its own; ctx is handed to each audit as is.
func RunMultiScreenAudit(ctx context.Context, auditor ScreenAuditor, frames []Frame, personaID string, opts audit.Options, cfg Config, onScreenComplete CompleteFunc) {
	if len(frames) == 0 {
		return
	}

	workers := cfg.Concurrency
	if workers <= 0 {
		workers = DefaultConcurrency
	}
	workers = min(workers, len(frames))

	var (
		next int64 = -1
		wg   sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&next, 1))
				if i >= len(frames) {
					return
				}
				result := auditOne(ctx, auditor, frames[i], personaID, opts)
				if onScreenComplete != nil {
					onScreenComplete(i, result)
				}
			}
		}()
	}
	wg.Wait()
}

func auditOne(ctx context.Context, auditor ScreenAuditor, f Frame, personaID string, opts audit.Options) (slot ScreenAuditResult) {
	slot = ScreenAuditResult{ScreenName: f.Name, ScreenImageURL: f.ImageURL}

	defer func() {
		if r := recover(); r != nil {
			slot.Result = nil
			slot.Error = fmt.Sprintf("audit panicked: %v", r)
		}
	}()

	itemOpts := opts
	if f.Name != "" {
		itemOpts.ScreenName = f.Name
	}

	res, err := auditor.AuditScreen(ctx, audit.Image{URL: f.ImageURL}, personaID, itemOpts)
	switch {
	case err != nil:
		slot.Error = apperr.Message(err)
	case res == nil:
		slot.Error = "audit returned no result"
	default:
		slot.Result = res
	}
	return slot
}
