package server

import (
	"context"
	"log"
)

// Logger writes request-scoped log lines. It satisfies designaudit.Logger.
type Logger struct {
	requestID string
	operation string
}

// NewLogger creates a logger for one operation of the request in ctx.
func NewLogger(ctx context.Context, operation string) *Logger {
	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{requestID: requestID, operation: operation}
}

func (l *Logger) Infof(format string, args ...any) {
	log.Printf("[info] request_id=%s operation=%s "+format, append([]any{l.requestID, l.operation}, args...)...)
}

func (l *Logger) Warnf(format string, args ...any) {
	log.Printf("[warn] request_id=%s operation=%s "+format, append([]any{l.requestID, l.operation}, args...)...)
}

func (l *Logger) Errorf(format string, args ...any) {
	log.Printf("[error] request_id=%s operation=%s "+format, append([]any{l.requestID, l.operation}, args...)...)
}
