package server

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	maxRequestIDLen = 128
)

type requestIDKey struct{}

// RequestIDMiddleware tags each request with an id, taken from X-Request-Id
// when the client sends a usable one, and echoes it on the response. The id
// lands on the request context where NewLogger picks it up, and one access
// line is logged per request after the handlers return.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.NewString()
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), requestIDKey{}, rid))
		c.Header(requestIDHeader, rid)

		start := time.Now()
		c.Next()

		NewLogger(c.Request.Context(), "http").Infof("%s %s status=%d latency=%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Microsecond))
	}
}

// GetRequestID returns the id RequestIDMiddleware stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
