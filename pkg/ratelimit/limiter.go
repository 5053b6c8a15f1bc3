package ratelimit

import (
	"sync"
	"time"
)

// Window is the fixed rate-limit window length.
const Window = time.Second

// CheckResult reports the outcome of a rate-limit check.
type CheckResult struct {
	// Allowed indicates whether the request fits the quota.
	Allowed bool

	// Limit is the burst ceiling applied to the window.
	Limit int

	// Remaining is how many requests remain in the current window.
	Remaining int

	// RetryAfter suggests how long to wait before retrying (zero when
	// allowed).
	RetryAfter time.Duration
}

// state is one key's counter within the current window.
type state struct {
	count     int
	resetTime time.Time
}

// FixedWindowLimiter counts requests per key over fixed one-second windows.
//
// Each key's check-and-increment is atomic under the limiter's mutex; keys
// never coordinate with each other beyond that. Safe for concurrent use.
type FixedWindowLimiter struct {
	mu    sync.Mutex
	keys  map[string]*state
	clock func() time.Time
}

// NewFixedWindowLimiter creates an empty limiter.
func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		keys:  make(map[string]*state),
		clock: time.Now,
	}
}

// Check records one request against key and reports whether it fits within
// burst for the current window. The counter increments only when allowed.
func (l *FixedWindowLimiter) Check(key string, burst int) CheckResult {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.keys[key]
	if !ok || now.After(st.resetTime) {
		st = &state{resetTime: now.Add(Window)}
		l.keys[key] = st
	}

	if st.count >= burst {
		return CheckResult{
			Allowed:    false,
			Limit:      burst,
			Remaining:  0,
			RetryAfter: st.resetTime.Sub(now),
		}
	}

	st.count++
	return CheckResult{
		Allowed:   true,
		Limit:     burst,
		Remaining: burst - st.count,
	}
}

// Len returns the number of tracked keys, stale windows included.
func (l *FixedWindowLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// Prune drops keys whose window has long expired, bounding memory when key
// cardinality churns. Keys older than maxAge past their reset are removed.
func (l *FixedWindowLimiter) Prune(maxAge time.Duration) int {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, st := range l.keys {
		if now.Sub(st.resetTime) > maxAge {
			delete(l.keys, key)
			removed++
		}
	}
	return removed
}
