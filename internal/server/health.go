package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const cachePingTimeout = time.Second

// Pinger reports whether an optional backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is served on /health and /healthz. The cache is optional, so
// an unreachable one degrades the status without failing the check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	Cache     string    `json:"cache"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthHandler struct {
	service, version string
	cache            Pinger
	started          time.Time
}

func NewHealthHandler(service, version string, cache Pinger) *HealthHandler {
	return &HealthHandler{service: service, version: version, cache: cache, started: time.Now()}
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   h.service,
		Version:   h.version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Cache:     h.cacheStatus(c.Request.Context()),
		Timestamp: time.Now().UTC(),
	}
	if resp.Cache == "down" {
		resp.Status = "degraded"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) cacheStatus(ctx context.Context) string {
	if h.cache == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, cachePingTimeout)
	defer cancel()
	if err := h.cache.Ping(ctx); err != nil {
		return "down"
	}
	return "up"
}
