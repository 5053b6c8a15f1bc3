package gateway

import (
	"encoding/json"
	"net/http"
)

// Stable machine-readable error codes returned by the gateway. Clients and
// downstream services branch on these; they never change between releases.
const (
	CodeInvalidHeaders    = "POLICY_ERR_INVALID_HEADERS"
	CodeInvalidFormat     = "POLICY_ERR_INVALID_FORMAT"
	CodeSubjectFrozen     = "POLICY_ERR_SUBJECT_FROZEN"
	CodeOrgFrozen         = "POLICY_ERR_ORG_FROZEN"
	CodeJurisdictionDeny  = "POLICY_ERR_JURISDICTION_DENIED"
	CodeRateLimitExceeded = "POLICY_ERR_RATE_LIMIT_EXCEEDED"
	CodeEngineError       = "POLICY_ERR_ENGINE_ERROR"
)

// PolicyError is the JSON error body for every gateway denial. Message is
// human-readable and generic; rule and policy content never appears in it.
type PolicyError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PolicyError) Error() string {
	return e.Code + ": " + e.Message
}

// statusFor maps an error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case CodeInvalidHeaders, CodeInvalidFormat:
		return http.StatusBadRequest
	case CodeSubjectFrozen, CodeOrgFrozen, CodeJurisdictionDeny:
		return http.StatusForbidden
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the denial body. Headers set by earlier gates (provenance,
// rate-limit hints) must be set before calling.
func writeError(w http.ResponseWriter, perr *PolicyError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(perr.Code))
	_ = json.NewEncoder(w).Encode(perr)
}
