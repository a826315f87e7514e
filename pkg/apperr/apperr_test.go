package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("export: %w", New(KindRateLimit, "slow down"))

	if !errors.Is(err, ErrRateLimit) {
		t.Fatalf("expected wrapped error to match ErrRateLimit")
	}
	if errors.Is(err, ErrQuota) {
		t.Fatalf("rate limit error must not match ErrQuota")
	}
}

func TestKindOfAndMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "classified",
			err:      New(KindPermission, "Access denied"),
			wantKind: KindPermission,
			wantMsg:  "Access denied",
		},
		{
			name:     "wrapped classified",
			err:      fmt.Errorf("outer: %w", Wrap(KindQuota, "Add credits", errors.New("402"))),
			wantKind: KindQuota,
			wantMsg:  "Add credits",
		},
		{
			name:     "unclassified",
			err:      errors.New("boom"),
			wantKind: KindUpstream,
			wantMsg:  "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
			if got := Message(tt.err); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindConfiguration, http.StatusInternalServerError},
		{KindValidation, http.StatusBadRequest},
		{KindRateLimit, http.StatusTooManyRequests},
		{KindPermission, http.StatusForbidden},
		{KindQuota, http.StatusPaymentRequired},
		{KindNoContent, http.StatusUnprocessableEntity},
		{KindExportFailed, http.StatusUnprocessableEntity},
		{KindUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := HTTPStatus(New(tt.kind, "x")); got != tt.want {
				t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}
