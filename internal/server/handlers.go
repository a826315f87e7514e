package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hellenic-development/design-audit/pkg/apperr"
	"github.com/hellenic-development/design-audit/pkg/audit"
	"github.com/hellenic-development/design-audit/pkg/dispatcher"
	"github.com/hellenic-development/design-audit/pkg/exporter"
	"github.com/hellenic-development/design-audit/pkg/formatter"
	"github.com/hellenic-development/design-audit/pkg/heuristics"
	"github.com/hellenic-development/design-audit/pkg/logctx"
)

// maxUploadBytes bounds multipart image uploads.
const maxUploadBytes = 10 << 20

// DesignService is the subset of designaudit.Service the handlers call.
type DesignService interface {
	ExtractFigmaFrames(ctx context.Context, figmaURL string) (*exporter.Result, error)
	AuditDesign(ctx context.Context, img audit.Image, personaID string, opts audit.Options) (*audit.AuditResult, error)
	AuditMultiScreen(ctx context.Context, frames []dispatcher.Frame, personaID string, opts audit.Options, onComplete dispatcher.CompleteFunc)
	Personas() []heuristics.Persona
	DefaultPersona() string
}

type Handler struct {
	svc DesignService
}

func NewHandler(svc DesignService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/figma/frames", h.ExtractFrames)
	r.POST("/audits", h.AuditDesign)
	r.POST("/audits/multi", h.AuditMultiScreen)
	r.GET("/personas", h.ListPersonas)
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type extractFramesRequest struct {
	URL string `json:"url" binding:"required"`
}

type auditRequest struct {
	Image      string `json:"image" form:"imageUrl"`
	PersonaID  string `json:"personaId" form:"personaId"`
	Fidelity   string `json:"fidelity" form:"fidelity"`
	Purpose    string `json:"purpose" form:"purpose"`
	ScreenName string `json:"screenName" form:"screenName"`
}

func (r auditRequest) options() audit.Options {
	return audit.Options{Fidelity: r.Fidelity, Purpose: r.Purpose, ScreenName: r.ScreenName}
}

type multiAuditRequest struct {
	Frames    []dispatcher.Frame `json:"frames"`
	PersonaID string             `json:"personaId"`
	Fidelity  string             `json:"fidelity"`
	Purpose   string             `json:"purpose"`
}

type PersonasResponse struct {
	Default  string               `json:"default"`
	Personas []heuristics.Persona `json:"personas"`
}

// ExtractFrames handles POST /figma/frames. ?format=markdown returns a
// Markdown listing instead of JSON.
func (h *Handler) ExtractFrames(c *gin.Context) {
	logger := NewLogger(c.Request.Context(), "extract_frames")

	var req extractFramesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, logger, apperr.Wrap(apperr.KindValidation, "A Figma URL is required", err))
		return
	}

	res, err := h.svc.ExtractFigmaFrames(logctx.With(c.Request.Context(), logger), req.URL)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Infof("file=%s exported=%d total=%d", res.FileKey, res.ExportedFrames, res.TotalFrames)

	if wantsMarkdown(c) {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(formatter.FramesToMarkdown(res)))
		return
	}
	c.JSON(http.StatusOK, res)
}

// AuditDesign handles POST /audits. The image comes either as a JSON "image"
// field (data URL or http(s) URL) or as a multipart "image" file.
func (h *Handler) AuditDesign(c *gin.Context) {
	logger := NewLogger(c.Request.Context(), "audit_design")

	req, img, err := bindAuditRequest(c)
	if err != nil {
		writeError(c, logger, err)
		return
	}

	res, err := h.svc.AuditDesign(logctx.With(c.Request.Context(), logger), img, req.PersonaID, req.options())
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Infof("score=%d risk=%s issues=%d", res.OverallScore, res.RiskLevel, res.IssueCount())

	if wantsMarkdown(c) {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(formatter.AuditToMarkdown(res, req.ScreenName)))
		return
	}
	c.JSON(http.StatusOK, res)
}

func bindAuditRequest(c *gin.Context) (auditRequest, audit.Image, error) {
	var req auditRequest

	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, audit.Image{}, apperr.Wrap(apperr.KindValidation, "Invalid request body", err)
		}
		return req, audit.Image{URL: req.Image}, nil
	}

	if err := c.ShouldBind(&req); err != nil {
		return req, audit.Image{}, apperr.Wrap(apperr.KindValidation, "Invalid form data", err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		// A form may still carry a remote image URL.
		return req, audit.Image{URL: req.Image}, nil
	}
	if fh.Size > maxUploadBytes {
		return req, audit.Image{}, apperr.New(apperr.KindValidation, "The uploaded image is larger than 10 MB")
	}

	f, err := fh.Open()
	if err != nil {
		return req, audit.Image{}, apperr.Wrap(apperr.KindValidation, "Could not read the uploaded image", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return req, audit.Image{}, apperr.Wrap(apperr.KindValidation, "Could not read the uploaded image", err)
	}

	img, err := audit.ImageFromBytes(data)
	if req.ScreenName == "" {
		req.ScreenName = strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))
	}
	return req, img, err
}

// AuditMultiScreen handles POST /audits/multi as a Server-Sent Events stream:
//
//	event: start   {runId, total, screens}
//	event: screen  {index, result}     one per settled screen, in completion order
//	event: done    {runId, settled, total, screens}
//
// A client that disconnects stops receiving events. The audits it started
// still run to completion.
func (h *Handler) AuditMultiScreen(c *gin.Context) {
	logger := NewLogger(c.Request.Context(), "audit_multi_screen")

	var req multiAuditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, logger, apperr.Wrap(apperr.KindValidation, "Invalid request body", err))
		return
	}
	if len(req.Frames) == 0 {
		writeError(c, logger, apperr.New(apperr.KindValidation, "At least one frame is required"))
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		writeError(c, logger, apperr.New(apperr.KindConfiguration, "Streaming is not supported"))
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	runID := uuid.NewString()
	tracker := dispatcher.NewTracker(req.Frames)
	total := len(req.Frames)
	logger.Infof("run=%s screens=%d persona=%s", runID, total, req.PersonaID)

	// Buffered to total so the workers never block on a gone client.
	events := make(chan screenEvent, total)
	ctx := c.Request.Context()
	opts := audit.Options{Fidelity: req.Fidelity, Purpose: req.Purpose}
	go func() {
		defer close(events)
		h.svc.AuditMultiScreen(logctx.With(ctx, logger), req.Frames, req.PersonaID, opts,
			func(i int, r dispatcher.ScreenAuditResult) {
				tracker.Complete(i, r)
				events <- screenEvent{Index: i, Result: r}
			})
	}()

	if err := writeSSE(c.Writer, flusher, "start", runEvent{RunID: runID, Total: total, Screens: tracker.Snapshot()}); err != nil {
		logger.Warnf("write start: %v", err)
		return
	}

	clientGone := ctx.Done()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				settled, _ := tracker.Progress()
				if err := writeSSE(c.Writer, flusher, "done", runEvent{
					RunID: runID, Settled: settled, Total: total, Screens: tracker.Snapshot(),
				}); err != nil {
					logger.Warnf("write done: %v", err)
				}
				logger.Infof("run=%s complete", runID)
				return
			}
			if err := writeSSE(c.Writer, flusher, "screen", ev); err != nil {
				logger.Warnf("write screen %d: %v", ev.Index, err)
				return
			}
		case <-clientGone:
			settled, _ := tracker.Progress()
			logger.Infof("run=%s client disconnected at %d/%d", runID, settled, total)
			return
		}
	}
}

type screenEvent struct {
	Index  int                          `json:"index"`
	Result dispatcher.ScreenAuditResult `json:"result"`
}

type runEvent struct {
	RunID   string                         `json:"runId"`
	Settled int                            `json:"settled"`
	Total   int                            `json:"total"`
	Screens []dispatcher.ScreenAuditResult `json:"screens"`
}

func writeSSE(w io.Writer, flusher http.Flusher, event string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *Handler) ListPersonas(c *gin.Context) {
	c.JSON(http.StatusOK, PersonasResponse{
		Default:  h.svc.DefaultPersona(),
		Personas: h.svc.Personas(),
	})
}

func writeError(c *gin.Context, logger *Logger, err error) {
	status := apperr.HTTPStatus(err)
	logger.Errorf("status=%d kind=%s error=%v", status, apperr.KindOf(err), err)
	c.JSON(status, ErrorResponse{
		Error: apperr.Message(err),
		Kind:  string(apperr.KindOf(err)),
	})
}

func wantsMarkdown(c *gin.Context) bool {
	return strings.EqualFold(c.Query("format"), "markdown") ||
		strings.Contains(c.GetHeader("Accept"), "text/markdown")
}
