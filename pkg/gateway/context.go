package gateway

import (
	"context"
	"time"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context.
const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// DecisionKey stores the gateway's Decision for the request.
	DecisionKey contextKey = "decision"

	// RedactionKey stores the ruleset's redaction annotation for downstream
	// response filtering.
	RedactionKey contextKey = "redaction"

	// IdentityKey stores the sanitized request identity.
	IdentityKey contextKey = "identity"
)

// GetRequestID extracts the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetStartTime extracts the request start time from the context.
// Returns zero time if not found.
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(StartTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDecision extracts the gateway decision from the context.
// Returns nil if the gateway has not decided the request.
func GetDecision(ctx context.Context) *Decision {
	if d, ok := ctx.Value(DecisionKey).(*Decision); ok {
		return d
	}
	return nil
}

// GetIdentity extracts the sanitized identity from the context.
func GetIdentity(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(Identity)
	return id, ok
}
