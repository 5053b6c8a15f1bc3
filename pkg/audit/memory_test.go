package audit

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func evalRecord(id string, createdAt time.Time) *EvaluationRecord {
	return &EvaluationRecord{
		ID:        id,
		RuleID:    "rule-" + id,
		RuleName:  "Rule " + id,
		Passed:    true,
		Action:    "approve",
		CreatedAt: createdAt,
	}
}

func decisionRecord(id string, createdAt time.Time) *DecisionRecord {
	return &DecisionRecord{
		ID:        id,
		RequestID: "req-" + id,
		Subject:   "subject:alice",
		Org:       "org:acme",
		Decision:  "ALLOW",
		CreatedAt: createdAt,
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("e%d", i)
		if err := store.AppendEvaluation(ctx, evalRecord(id, now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("AppendEvaluation: %v", err)
		}
	}
	if err := store.AppendDecision(ctx, decisionRecord("d0", now)); err != nil {
		t.Fatalf("AppendDecision: %v", err)
	}

	evals, err := store.RecentEvaluations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentEvaluations: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("got %d evaluations, want 2", len(evals))
	}
	// Newest first.
	if evals[0].ID != "e2" || evals[1].ID != "e1" {
		t.Errorf("order = %s, %s, want e2, e1", evals[0].ID, evals[1].ID)
	}

	decisions, err := store.RecentDecisions(ctx, 10)
	if err != nil {
		t.Fatalf("RecentDecisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].RequestID != "req-d0" {
		t.Errorf("decisions = %+v", decisions)
	}
}

func TestMemoryStoreAppendCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record := evalRecord("e1", time.Now())
	if err := store.AppendEvaluation(ctx, record); err != nil {
		t.Fatalf("AppendEvaluation: %v", err)
	}
	record.RuleID = "mutated"

	evals, _ := store.RecentEvaluations(ctx, 1)
	if evals[0].RuleID != "rule-e1" {
		t.Error("stored record should not alias the caller's record")
	}
}

func TestMemoryStorePruneByAge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.AppendEvaluation(ctx, evalRecord("old", now.Add(-48*time.Hour)))
	_ = store.AppendEvaluation(ctx, evalRecord("new", now))
	_ = store.AppendDecision(ctx, decisionRecord("old", now.Add(-48*time.Hour)))
	_ = store.AppendDecision(ctx, decisionRecord("new", now))

	deleted, err := store.Prune(ctx, now.Add(-24*time.Hour), 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	evals, _ := store.RecentEvaluations(ctx, 0)
	if len(evals) != 1 || evals[0].ID != "new" {
		t.Errorf("evaluations after prune = %+v", evals)
	}
}

func TestMemoryStorePruneByCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_ = store.AppendEvaluation(ctx, evalRecord(fmt.Sprintf("e%d", i), now.Add(time.Duration(i)*time.Second)))
	}

	deleted, err := store.Prune(ctx, time.Time{}, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	evals, _ := store.RecentEvaluations(ctx, 0)
	if len(evals) != 2 {
		t.Fatalf("kept %d records, want 2", len(evals))
	}
	// The newest records survive a count trim.
	if evals[0].ID != "e4" || evals[1].ID != "e3" {
		t.Errorf("kept = %s, %s, want e4, e3", evals[0].ID, evals[1].ID)
	}
}

func TestPruner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = store.AppendEvaluation(ctx, evalRecord("ancient", now.AddDate(0, 0, -120)))
	_ = store.AppendEvaluation(ctx, evalRecord("recent", now))

	pruner := NewPruner(store, &RetentionConfig{RetentionDays: 90})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

func TestPrunerRetentionDisabled(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_ = store.AppendEvaluation(ctx, evalRecord("ancient", time.Now().AddDate(-1, 0, 0)))

	pruner := NewPruner(store, &RetentionConfig{RetentionDays: 0})
	deleted, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0 with age pruning disabled", deleted)
	}
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), &RetentionConfig{PruneSchedule: "not-a-schedule"})
	scheduler := NewScheduler(pruner)

	if err := scheduler.Start(context.Background()); err == nil {
		t.Fatal("invalid cron expression should fail to start")
	}
}

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), &RetentionConfig{PruneSchedule: ""})
	scheduler := NewScheduler(pruner)

	if err := scheduler.Start(context.Background()); err != nil {
		t.Fatalf("empty schedule should start as a no-op: %v", err)
	}
	scheduler.Stop()
}

func TestSchedulerStartStop(t *testing.T) {
	pruner := NewPruner(NewMemoryStore(), &RetentionConfig{
		RetentionDays: 90,
		PruneSchedule: "0 3 * * *",
	})
	scheduler := NewScheduler(pruner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	scheduler.Stop()
	// Stop is idempotent.
	scheduler.Stop()
}
