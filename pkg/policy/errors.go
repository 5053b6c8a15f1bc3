package policy

import (
	"errors"
	"fmt"
)

// ErrNoRuleset is returned when no ruleset has ever been loaded successfully.
// The gateway treats it as an engine error and fails closed.
var ErrNoRuleset = errors.New("no policy ruleset loaded")

// LoadError reports a failure to load the ruleset document.
type LoadError struct {
	// Source describes the ruleset source (e.g. a file path).
	Source string

	// Message describes the failure.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load policy ruleset from %q: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load policy ruleset from %q: %s", e.Source, e.Message)
}

// Unwrap supports errors.Is/As chains.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
