package rules

import (
	"sync"
)

// Ring is a bounded buffer of the most recent evaluation results, kept for
// real-time inspection. When full, the oldest entry is evicted.
type Ring struct {
	mu      sync.Mutex
	entries []EvaluationResult
	head    int
	count   int
}

// NewRing creates a ring buffer with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		entries: make([]EvaluationResult, capacity),
	}
}

// Push appends a result, evicting the oldest entry when the buffer is full.
func (r *Ring) Push(result EvaluationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.head] = result
	r.head = (r.head + 1) % len(r.entries)
	if r.count < len(r.entries) {
		r.count++
	}
}

// Snapshot returns the buffered results, newest first.
func (r *Ring) Snapshot() []EvaluationResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EvaluationResult, 0, r.count)
	for i := 1; i <= r.count; i++ {
		idx := (r.head - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out
}

// Len returns the number of buffered results.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
