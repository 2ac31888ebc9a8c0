package insights

import (
	"time"
)

// RateLimiter enforces a sliding-window cap on query-path model calls per
// session, to bound upstream API cost. Not safe for concurrent use; the query
// flow is single-threaded end to end.
type RateLimiter struct {
	maxCalls int
	period   time.Duration
	calls    []time.Time

	now func() time.Time
}

// NewRateLimiter returns a limiter allowing maxCalls per period. The default
// query-path gate is 10 calls per 60 seconds.
func NewRateLimiter(maxCalls int, period time.Duration) *RateLimiter {
	if maxCalls <= 0 {
		maxCalls = 10
	}
	if period <= 0 {
		period = time.Minute
	}
	return &RateLimiter{maxCalls: maxCalls, period: period, now: time.Now}
}

// Allow records a call if the window has room and reports the wait until the
// next slot frees up otherwise. On a limit violation nothing is recorded.
func (r *RateLimiter) Allow() (bool, time.Duration) {
	now := r.now()
	cutoff := now.Add(-r.period)

	kept := r.calls[:0]
	for _, t := range r.calls {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls = kept

	if len(r.calls) >= r.maxCalls {
		oldest := r.calls[0]
		for _, t := range r.calls {
			if t.Before(oldest) {
				oldest = t
			}
		}
		wait := oldest.Sub(cutoff)
		if wait < 0 {
			wait = 0
		}
		return false, wait
	}

	r.calls = append(r.calls, now)
	return true, 0
}

// Reset clears all tracked calls.
func (r *RateLimiter) Reset() {
	r.calls = r.calls[:0]
}
