package rules

import (
	"time"
)

// RuleType categorizes a compliance rule by the domain it governs.
type RuleType string

const (
	// RuleTypeKYC covers know-your-customer verification rules.
	RuleTypeKYC RuleType = "kyc"

	// RuleTypeAML covers anti-money-laundering risk rules.
	RuleTypeAML RuleType = "aml"

	// RuleTypeSanctions covers sanctions screening rules.
	RuleTypeSanctions RuleType = "sanctions"

	// RuleTypeTransaction covers per-transaction rules (amounts, velocity).
	RuleTypeTransaction RuleType = "transaction"

	// RuleTypeJurisdiction covers jurisdiction gating rules.
	RuleTypeJurisdiction RuleType = "jurisdiction"

	// RuleTypeAccreditation covers investor accreditation rules.
	RuleTypeAccreditation RuleType = "accreditation"
)

// Valid reports whether the rule type is one of the known types.
func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeKYC, RuleTypeAML, RuleTypeSanctions,
		RuleTypeTransaction, RuleTypeJurisdiction, RuleTypeAccreditation:
		return true
	}
	return false
}

// Operator is a condition comparison operator.
type Operator string

const (
	OperatorEqual        Operator = "eq"
	OperatorNotEqual     Operator = "neq"
	OperatorGreaterThan  Operator = "gt"
	OperatorGreaterEqual Operator = "gte"
	OperatorLessThan     Operator = "lt"
	OperatorLessEqual    Operator = "lte"
	OperatorIn           Operator = "in"
	OperatorNotIn        Operator = "nin"
	OperatorContains     Operator = "contains"
	OperatorRegex        Operator = "regex"
)

// Logic describes how a condition combines with the previous condition in the
// sequence. The zero value is treated as AND.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// ActionType is the kind of action a rule takes when it decides.
type ActionType string

const (
	ActionApprove      ActionType = "approve"
	ActionReject       ActionType = "reject"
	ActionFlag         ActionType = "flag"
	ActionManualReview ActionType = "manual_review"
	ActionNotify       ActionType = "notify"
	ActionLog          ActionType = "log"
)

// Valid reports whether the action type is one of the known types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionApprove, ActionReject, ActionFlag,
		ActionManualReview, ActionNotify, ActionLog:
		return true
	}
	return false
}

// Condition is a single field-level predicate. Field is a dot path into the
// evaluation context (e.g. "user.kyc_status"); a missing field evaluates
// against an absent value, never an error.
type Condition struct {
	// Field is the dot-path into the context (e.g. "transaction.amount").
	Field string `yaml:"field" json:"field"`

	// Operator selects the comparison (eq, neq, gt, gte, lt, lte, in, nin,
	// contains, regex).
	Operator Operator `yaml:"operator" json:"operator"`

	// Value is the comparison target. For "in"/"nin" it must be a list.
	Value any `yaml:"value" json:"value"`

	// Logic describes how this condition combines with the previous one in
	// the sequence (AND or OR). Empty means AND.
	Logic Logic `yaml:"logic,omitempty" json:"logic,omitempty"`
}

// Action is a tagged action with free-form parameters.
type Action struct {
	// Type is the action kind (approve, reject, flag, manual_review, notify, log).
	Type ActionType `yaml:"type" json:"type"`

	// Parameters carries action-specific settings (e.g. notification target).
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Rule is a named, prioritized predicate-plus-action pair. Rules are immutable
// once loaded into an evaluation pass and replaced wholesale on reload.
type Rule struct {
	// ID uniquely identifies the rule within a rule set.
	ID string `yaml:"id" json:"id"`

	// Name is the human-readable rule name.
	Name string `yaml:"name" json:"name"`

	// Description explains what the rule enforces.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Type categorizes the rule (kyc, aml, sanctions, transaction,
	// jurisdiction, accreditation).
	Type RuleType `yaml:"type" json:"type"`

	// Priority orders evaluation; higher priorities are evaluated first.
	// Ties preserve load order.
	Priority int `yaml:"priority" json:"priority"`

	// Enabled controls whether the rule participates in evaluation.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Conditions is the ordered condition sequence, folded left to right.
	Conditions []Condition `yaml:"conditions" json:"conditions"`

	// Actions is the ordered action sequence the rule chooses from.
	Actions []Action `yaml:"actions" json:"actions"`

	// Metadata carries free-form rule annotations.
	Metadata map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Transaction is the transaction slice of the evaluation context.
type Transaction struct {
	ID          string         `yaml:"id" json:"id"`
	Amount      float64        `yaml:"amount" json:"amount"`
	Currency    string         `yaml:"currency" json:"currency"`
	Type        string         `yaml:"type" json:"type"`
	FromAccount string         `yaml:"from_account,omitempty" json:"from_account,omitempty"`
	ToAccount   string         `yaml:"to_account,omitempty" json:"to_account,omitempty"`
	Metadata    map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// User is the user slice of the evaluation context.
type User struct {
	ID                  string         `yaml:"id" json:"id"`
	KYCStatus           string         `yaml:"kyc_status,omitempty" json:"kyc_status,omitempty"`
	AMLRiskScore        *float64       `yaml:"aml_risk_score,omitempty" json:"aml_risk_score,omitempty"`
	Jurisdiction        string         `yaml:"jurisdiction,omitempty" json:"jurisdiction,omitempty"`
	AccreditationStatus string         `yaml:"accreditation_status,omitempty" json:"accreditation_status,omitempty"`
	AccountAgeDays      *int           `yaml:"account_age_days,omitempty" json:"account_age_days,omitempty"`
	TotalVolume         *float64       `yaml:"total_transaction_volume,omitempty" json:"total_transaction_volume,omitempty"`
	Metadata            map[string]any `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Environment is the request-environment slice of the evaluation context.
type Environment struct {
	Timestamp string `yaml:"timestamp,omitempty" json:"timestamp,omitempty"`
	SourceIP  string `yaml:"source_ip,omitempty" json:"source_ip,omitempty"`
	UserAgent string `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	SessionID string `yaml:"session_id,omitempty" json:"session_id,omitempty"`
}

// Context is the nested evaluation context a rule set runs against. Any slice
// may be absent; condition fields that reach into an absent slice evaluate
// against an absent value.
type Context struct {
	Transaction *Transaction `yaml:"transaction,omitempty" json:"transaction,omitempty"`
	User        *User        `yaml:"user,omitempty" json:"user,omitempty"`
	Environment *Environment `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// EvaluationResult is the outcome of evaluating a single rule against a context.
type EvaluationResult struct {
	// RuleID is the evaluated rule's ID.
	RuleID string `json:"rule_id"`

	// RuleName is the evaluated rule's name.
	RuleName string `json:"rule_name"`

	// Passed reports whether the folded condition sequence held.
	Passed bool `json:"passed"`

	// Action is the chosen action, or nil when the rule declares none.
	Action *Action `json:"action"`

	// MatchedConditions lists the conditions that individually matched.
	MatchedConditions []Condition `json:"matched_conditions"`

	// Duration is how long the rule took to evaluate.
	Duration time.Duration `json:"duration"`

	// Context echoes opaque rule metadata for downstream consumers.
	Context map[string]any `json:"context,omitempty"`
}
