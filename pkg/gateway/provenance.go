package gateway

import (
	"encoding/json"
	"net/http"
	"time"
)

// ProvenanceHeader carries the gateway's decision record to the client and
// downstream services on every terminal outcome, allow or deny.
const ProvenanceHeader = "X-Veria-Provenance"

// Decision is the provenance record for one gateway decision. The JSON field
// names are a wire contract shared with downstream consumers.
type Decision struct {
	ReqID      string `json:"reqId"`
	Subject    string `json:"subject"`
	Org        string `json:"org"`
	PolicyHash string `json:"policyHash"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
	TS         int64  `json:"ts"`
}

// Decision outcomes.
const (
	DecisionAllow = "ALLOW"
	DecisionDeny  = "DENY"
)

// newDecision builds a Decision stamped with the current time.
func newDecision(reqID string, id Identity, policyHash, outcome, reason string) *Decision {
	return &Decision{
		ReqID:      reqID,
		Subject:    id.Subject,
		Org:        id.Org,
		PolicyHash: policyHash,
		Decision:   outcome,
		Reason:     reason,
		TS:         time.Now().UnixMilli(),
	}
}

// setProvenance serializes the decision onto the response. Marshal of a flat
// struct cannot fail; the error return exists only for the json contract.
func setProvenance(w http.ResponseWriter, d *Decision) {
	b, err := json.Marshal(d)
	if err != nil {
		return
	}
	w.Header().Set(ProvenanceHeader, string(b))
}
