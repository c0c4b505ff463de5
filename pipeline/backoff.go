package pipeline

import (
	"math"
	"net/http"
	"strconv"
	"time"
)

// Delay returns the wait before retry number attempt (0-based):
// min(MinDelay * BaseMultiplier^attempt, MaxDelay).
// The sequence is non-decreasing and never exceeds MaxDelay.
func (r RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := r.BaseMultiplier
	if base < 1 {
		base = 1
	}

	factor := math.Pow(float64(base), float64(attempt))
	d := float64(r.MinDelay) * factor
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(d)
}

// Delays returns the first n waits, mostly useful for logging a policy.
func (r RetryConfig) Delays(n int) []time.Duration {
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = r.Delay(i)
	}
	return out
}

// backoff adapts Delay to retryablehttp.Backoff. A Retry-After header on a
// 429 or 503 can stretch the wait, but never past MaxDelay.
func (r RetryConfig) backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	d := r.Delay(attemptNum)
	if resp == nil {
		return d
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return d
	}
	if after, ok := retryAfter(resp.Header.Get("Retry-After")); ok && after > d {
		return min(after, r.MaxDelay)
	}
	return d
}

func retryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}
