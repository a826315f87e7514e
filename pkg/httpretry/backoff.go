package httpretry

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// BackoffPolicy computes how long to wait before retry number attempt
// (0 for the first retry). resp is the rate-limited response that triggered
// the retry and may be inspected for provider hints.
type BackoffPolicy interface {
	Delay(attempt int, resp *http.Response) time.Duration
}

// Fixed waits the same interval before every retry.
type Fixed struct {
	Interval time.Duration
}

func (p Fixed) Delay(int, *http.Response) time.Duration { return p.Interval }

// Linear waits (attempt+1)*Base: Base, 2*Base, 3*Base, ...
type Linear struct {
	Base time.Duration
}

func (p Linear) Delay(attempt int, _ *http.Response) time.Duration {
	return time.Duration(attempt+1) * p.Base
}

// Exponential waits Base*2^attempt: Base, 2*Base, 4*Base, ...
// A zero Max means unbounded.
type Exponential struct {
	Base time.Duration
	Max  time.Duration
}

func (p Exponential) Delay(attempt int, _ *http.Response) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30
	}
	d := p.Base << uint(attempt)
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

// RetryAfter honours the provider's Retry-After header (delta-seconds or
// HTTP-date) and defers to Fallback when it is absent or unparsable.
type RetryAfter struct {
	Fallback BackoffPolicy
	Max      time.Duration
}

func (p RetryAfter) Delay(attempt int, resp *http.Response) time.Duration {
	if d, ok := parseRetryAfter(resp, time.Now()); ok {
		if p.Max > 0 && d > p.Max {
			return p.Max
		}
		return d
	}
	if p.Fallback == nil {
		return DefaultPolicy().Delay(attempt, resp)
	}
	return p.Fallback.Delay(attempt, resp)
}

func parseRetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// DefaultBaseDelay is the base of the canonical exponential policy.
const DefaultBaseDelay = time.Second

// DefaultPolicy is the canonical backoff: exponential from one second.
func DefaultPolicy() BackoffPolicy {
	return Exponential{Base: DefaultBaseDelay, Max: 30 * time.Second}
}

// ParsePolicy builds a policy from its configuration name.
// Accepted names: fixed, linear, exponential, retry-after.
func ParsePolicy(name string, base time.Duration) (BackoffPolicy, error) {
	if base <= 0 {
		base = DefaultBaseDelay
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "exponential":
		return Exponential{Base: base, Max: 30 * time.Second}, nil
	case "fixed":
		return Fixed{Interval: base}, nil
	case "linear":
		return Linear{Base: base}, nil
	case "retry-after", "header":
		return RetryAfter{Fallback: Exponential{Base: base, Max: 30 * time.Second}, Max: time.Minute}, nil
	default:
		return nil, fmt.Errorf("unknown retry strategy %q (must be fixed, linear, exponential or retry-after)", name)
	}
}
