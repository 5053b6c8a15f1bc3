package rules

import (
	"errors"
	"fmt"
)

// ErrNoRules is returned by Evaluate when no rule set has ever been loaded
// successfully. The engine fails closed rather than allowing everything.
var ErrNoRules = errors.New("no rule set loaded")

// ErrEngineClosed is returned by operations on a closed engine.
var ErrEngineClosed = errors.New("rule engine closed")

// LoadError reports a failure to load a rule set from its source.
type LoadError struct {
	// Source describes the rule source (e.g. a file path).
	Source string

	// Message describes the failure.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rules from %q: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rules from %q: %s", e.Source, e.Message)
}

// Unwrap supports errors.Is/As chains.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError reports an invalid rule in a loaded document.
type ValidationError struct {
	// RuleID identifies the offending rule ("" when the document itself is bad).
	RuleID string

	// FieldPath locates the invalid field (e.g. "conditions[2].operator").
	FieldPath string

	// Message describes the violation.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.RuleID != "" && e.FieldPath != "":
		return fmt.Sprintf("invalid rule %q: %s: %s", e.RuleID, e.FieldPath, e.Message)
	case e.RuleID != "":
		return fmt.Sprintf("invalid rule %q: %s", e.RuleID, e.Message)
	default:
		return fmt.Sprintf("invalid rule document: %s", e.Message)
	}
}
