package audit

import (
	"context"
	"time"
)

// EvaluationRecord is the durable trail of one rule evaluation.
type EvaluationRecord struct {
	// ID is the record's unique identifier (UUID v4).
	ID string `json:"id"`

	// RuleID and RuleName identify the evaluated rule.
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`

	// Passed reports whether the rule's condition sequence held.
	Passed bool `json:"passed"`

	// Action is the chosen action type ("" when the rule chose none).
	Action string `json:"action"`

	// Context is the JSON-encoded evaluation context echo.
	Context string `json:"context"`

	// CreatedAt is when the evaluation happened.
	CreatedAt time.Time `json:"created_at"`
}

// DecisionRecord is the durable trail of one gateway policy decision.
type DecisionRecord struct {
	// ID is the record's unique identifier (UUID v4).
	ID string `json:"id"`

	// RequestID correlates the record with the handled request.
	RequestID string `json:"request_id"`

	// Subject and Org identify who the decision was made for.
	Subject string `json:"subject"`
	Org     string `json:"org"`

	// PolicyHash is the version hash of the ruleset that governed the decision.
	PolicyHash string `json:"policy_hash"`

	// Decision is the outcome ("ALLOW" or "DENY").
	Decision string `json:"decision"`

	// Reason identifies the gate that denied ("" on allow).
	Reason string `json:"reason"`

	// CreatedAt is when the decision was made.
	CreatedAt time.Time `json:"created_at"`
}

// Sink is the append-only audit interface the engine and gateway write to.
// Implementations must be safe for concurrent use. Append failures are
// returned to the caller for local logging only; callers never retry
// synchronously and never fail a request on a sink error.
type Sink interface {
	// AppendEvaluation stores one rule evaluation record.
	AppendEvaluation(ctx context.Context, record *EvaluationRecord) error

	// AppendDecision stores one gateway decision record.
	AppendDecision(ctx context.Context, record *DecisionRecord) error
}

// Store extends Sink with the query and maintenance surface used by the
// retention pruner and the inspection endpoints.
type Store interface {
	Sink

	// RecentEvaluations returns up to limit evaluation records, newest first.
	RecentEvaluations(ctx context.Context, limit int) ([]*EvaluationRecord, error)

	// RecentDecisions returns up to limit decision records, newest first.
	RecentDecisions(ctx context.Context, limit int) ([]*DecisionRecord, error)

	// Prune deletes records older than cutoff and, when maxRecords > 0,
	// trims each table to its newest maxRecords rows. Returns rows deleted.
	Prune(ctx context.Context, cutoff time.Time, maxRecords int) (int64, error)

	// Close releases storage resources.
	Close() error
}
