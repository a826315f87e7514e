// Package apperr defines the error taxonomy shared by the Figma export
// pipeline, the vision auditor and the HTTP boundary.
//
// Every failure that crosses a package boundary is an *Error carrying a Kind.
// Callers branch on the kind (errors.Is(err, apperr.ErrRateLimit)) rather than
// on raw provider status codes.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies a failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindValidation    Kind = "validation"
	KindRateLimit     Kind = "rate_limited"
	KindPermission    Kind = "permission_denied"
	KindQuota         Kind = "quota_exceeded"
	KindUpstream      Kind = "upstream"
	KindParse         Kind = "parse"
	KindNoContent     Kind = "no_content"
	KindExportFailed  Kind = "export_failed"
)

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRateLimit     = &Error{Kind: KindRateLimit}
	ErrPermission    = &Error{Kind: KindPermission}
	ErrQuota         = &Error{Kind: KindQuota}
	ErrUpstream      = &Error{Kind: KindUpstream}
	ErrParse         = &Error{Kind: KindParse}
	ErrNoContent     = &Error{Kind: KindNoContent}
	ErrExportFailed  = &Error{Kind: KindExportFailed}
)

// Error is a classified failure with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// New returns a classified error without an underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns a classified error that wraps err.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindUpstream for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// Message returns the user-facing message of err. Unclassified errors
// collapse to a generic message so internal details never reach the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "An unexpected error occurred"
}

// HTTPStatus maps err to the status code used by the HTTP boundary.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindConfiguration:
		return http.StatusInternalServerError
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindPermission:
		return http.StatusForbidden
	case KindQuota:
		return http.StatusPaymentRequired
	case KindNoContent, KindExportFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
