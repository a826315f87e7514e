// Package logctx carries a progress logger on a context, so that log lines
// written deep inside an export or an audit can be tied to the request that
// started it.
package logctx

import "context"

// Logger is the logging surface shared by the exporter, the auditor and the
// service facade.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type ctxKey struct{}

// With returns a copy of ctx carrying l. A nil l leaves ctx unchanged.
func With(ctx context.Context, l Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger carried by ctx, or fallback when there is none.
func From(ctx context.Context, fallback Logger) Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
			return l
		}
	}
	return fallback
}
