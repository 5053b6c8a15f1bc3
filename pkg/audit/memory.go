package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store using in-memory slices. It backs tests and
// development runs; production uses the SQLite store.
type MemoryStore struct {
	mu          sync.RWMutex
	evaluations []*EvaluationRecord
	decisions   []*DecisionRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AppendEvaluation stores one rule evaluation record.
func (s *MemoryStore) AppendEvaluation(ctx context.Context, record *EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.evaluations = append(s.evaluations, &recordCopy)
	return nil
}

// AppendDecision stores one gateway decision record.
func (s *MemoryStore) AppendDecision(ctx context.Context, record *DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.decisions = append(s.decisions, &recordCopy)
	return nil
}

// RecentEvaluations returns up to limit evaluation records, newest first.
func (s *MemoryStore) RecentEvaluations(ctx context.Context, limit int) ([]*EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.evaluations)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*EvaluationRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		recordCopy := *s.evaluations[i]
		out = append(out, &recordCopy)
	}
	return out, nil
}

// RecentDecisions returns up to limit decision records, newest first.
func (s *MemoryStore) RecentDecisions(ctx context.Context, limit int) ([]*DecisionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.decisions)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]*DecisionRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		recordCopy := *s.decisions[i]
		out = append(out, &recordCopy)
	}
	return out, nil
}

// Prune deletes records older than cutoff and trims to maxRecords per table.
func (s *MemoryStore) Prune(ctx context.Context, cutoff time.Time, maxRecords int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64

	keptEvals := s.evaluations[:0]
	for _, r := range s.evaluations {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		keptEvals = append(keptEvals, r)
	}
	if maxRecords > 0 && len(keptEvals) > maxRecords {
		deleted += int64(len(keptEvals) - maxRecords)
		keptEvals = keptEvals[len(keptEvals)-maxRecords:]
	}
	s.evaluations = keptEvals

	keptDecisions := s.decisions[:0]
	for _, r := range s.decisions {
		if r.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		keptDecisions = append(keptDecisions, r)
	}
	if maxRecords > 0 && len(keptDecisions) > maxRecords {
		deleted += int64(len(keptDecisions) - maxRecords)
		keptDecisions = keptDecisions[len(keptDecisions)-maxRecords:]
	}
	s.decisions = keptDecisions

	return deleted, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
