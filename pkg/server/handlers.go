package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"veria-hq/arbiter/pkg/eligibility"
	"veria-hq/arbiter/pkg/gateway"
	"veria-hq/arbiter/pkg/rules"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 1 << 20

// evaluateRequest is the body of POST /v1/compliance/evaluate.
type evaluateRequest struct {
	// Context is the transaction/user/environment snapshot to evaluate.
	Context rules.Context `json:"context"`

	// RuleType restricts evaluation to one rule type ("" evaluates all).
	RuleType rules.RuleType `json:"rule_type,omitempty"`
}

// evaluateResponse is the body of a successful evaluation.
type evaluateResponse struct {
	Results []rules.EvaluationResult `json:"results"`
}

// simulateRequest is the body of POST /v1/eligibility/simulate.
type simulateRequest struct {
	Policy eligibility.Policy `json:"policy"`
	Input  eligibility.Input  `json:"input"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RuleType != "" && !req.RuleType.Valid() {
		writeJSON(w, http.StatusBadRequest, &gateway.PolicyError{
			Code:    gateway.CodeInvalidFormat,
			Message: "unknown rule type",
			Details: map[string]string{"rule_type": string(req.RuleType)},
		})
		return
	}

	results, err := s.engine.Evaluate(r.Context(), &req.Context, req.RuleType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, rules.ErrNoRules) || errors.Is(err, rules.ErrEngineClosed) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Error("evaluation failed",
			"request_id", gateway.GetRequestID(r.Context()),
			"error", err,
		)
		writeJSON(w, status, &gateway.PolicyError{
			Code:    gateway.CodeEngineError,
			Message: "evaluation unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, &evaluateResponse{Results: results})
}

func (s *Server) handleRecentEvaluations(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, &gateway.PolicyError{
				Code:    gateway.CodeInvalidFormat,
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	snapshot := s.engine.Ring().Snapshot()
	if len(snapshot) > limit {
		snapshot = snapshot[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"evaluations": snapshot,
		"count":       len(snapshot),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := eligibility.Evaluate(&req.Policy, req.Input)
	writeJSON(w, http.StatusOK, result)
}

// decodeJSON reads and decodes the request body, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, &gateway.PolicyError{
			Code:    gateway.CodeInvalidFormat,
			Message: "malformed request body",
		})
		return false
	}
	// Reject trailing content after the JSON document.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeJSON(w, http.StatusBadRequest, &gateway.PolicyError{
			Code:    gateway.CodeInvalidFormat,
			Message: "unexpected trailing content",
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
