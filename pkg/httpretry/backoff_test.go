package httpretry

import (
	"net/http"
	"testing"
	"time"
)

func TestPolicies(t *testing.T) {
	tests := []struct {
		name   string
		policy BackoffPolicy
		want   []time.Duration
	}{
		{
			name:   "fixed",
			policy: Fixed{Interval: 2 * time.Second},
			want:   []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second},
		},
		{
			name:   "linear",
			policy: Linear{Base: 2 * time.Second},
			want:   []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second},
		},
		{
			name:   "exponential",
			policy: Exponential{Base: time.Second},
			want:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second},
		},
		{
			name:   "exponential capped",
			policy: Exponential{Base: time.Second, Max: 3 * time.Second},
			want:   []time.Duration{time.Second, 2 * time.Second, 3 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for attempt, want := range tt.want {
				if got := tt.policy.Delay(attempt, nil); got != want {
					t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
				}
			}
		})
	}
}

func TestRetryAfter(t *testing.T) {
	fallback := Fixed{Interval: 7 * time.Second}

	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{name: "seconds", header: "12", want: 12 * time.Second},
		{name: "missing header uses fallback", header: "", want: 7 * time.Second},
		{name: "garbage uses fallback", header: "soon", want: 7 * time.Second},
		{name: "negative uses fallback", header: "-3", want: 7 * time.Second},
		{name: "capped", header: "600", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			p := RetryAfter{Fallback: fallback, Max: time.Minute}
			if got := p.Delay(0, resp); got != tt.want {
				t.Errorf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name    string
		want    time.Duration // delay for attempt 1
		wantErr bool
	}{
		{name: "", want: 2 * time.Second},
		{name: "exponential", want: 2 * time.Second},
		{name: "fixed", want: time.Second},
		{name: "linear", want: 2 * time.Second},
		{name: "retry-after", want: 2 * time.Second},
		{name: "random", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParsePolicy(tt.name, time.Second)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePolicy() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := p.Delay(1, &http.Response{Header: http.Header{}}); got != tt.want {
				t.Errorf("Delay(1) = %v, want %v", got, tt.want)
			}
		})
	}
}
