package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"veria-hq/arbiter/pkg/audit"
	"veria-hq/arbiter/pkg/cache"
	"veria-hq/arbiter/pkg/policy"
	"veria-hq/arbiter/pkg/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticLoader serves a fixed ruleset (or error) to the provider.
type staticLoader struct {
	rs  *policy.Ruleset
	err error
}

func (l *staticLoader) LoadRuleset(ctx context.Context) (*policy.Ruleset, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.rs, nil
}

// recordingSink captures decision records for assertions.
type recordingSink struct {
	mu        sync.Mutex
	decisions []*audit.DecisionRecord
}

func (s *recordingSink) AppendEvaluation(ctx context.Context, record *audit.EvaluationRecord) error {
	return nil
}

func (s *recordingSink) AppendDecision(ctx context.Context, record *audit.DecisionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, record)
	return nil
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions)
}

func (s *recordingSink) last() *audit.DecisionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return nil
	}
	return s.decisions[len(s.decisions)-1]
}

func testRuleset() *policy.Ruleset {
	return &policy.Ruleset{
		Version: "test-v1",
		Jurisdictions: map[string]policy.Jurisdiction{
			"US": {Allow: true},
			"GB": {Allow: true},
		},
		Quotas: map[string]policy.Quota{
			"default":     {RPS: 5, Burst: 10},
			"org:premium": {RPS: 100, Burst: 200},
		},
		DenyList:  []string{"subject:frozen", "org:sanctioned"},
		Redaction: &policy.Redaction{Fields: []string{"ssn"}},
	}
}

type gatewayFixture struct {
	gateway *Gateway
	cache   *cache.DecisionCache
	sink    *recordingSink
	next    *countingHandler
	handler http.Handler
}

type countingHandler struct {
	mu    sync.Mutex
	calls int
	ident Identity
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls++
	h.ident, _ = GetIdentity(r.Context())
	h.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (h *countingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func newFixture(t *testing.T, loader policy.Loader) *gatewayFixture {
	t.Helper()

	decisionCache := cache.New(cache.DefaultConfig())
	t.Cleanup(decisionCache.Close)

	sink := &recordingSink{}
	gw := New(Config{
		Provider:            policy.NewProvider(nil, loader, discardLogger()),
		Cache:               decisionCache,
		Limiter:             ratelimit.NewFixedWindowLimiter(),
		Sink:                sink,
		DefaultJurisdiction: "US",
	}, discardLogger())

	next := &countingHandler{}
	return &gatewayFixture{
		gateway: gw,
		cache:   decisionCache,
		sink:    sink,
		next:    next,
		handler: RequestIDMiddleware(gw.Middleware(next)),
	}
}

func doRequest(f *gatewayFixture, subject, org, jurisdiction string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/v1/compliance/evaluate", nil)
	if subject != "" {
		r.Header.Set(SubjectHeader, subject)
	}
	if org != "" {
		r.Header.Set(OrgHeader, org)
	}
	if jurisdiction != "" {
		r.Header.Set(JurisdictionHeader, jurisdiction)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *PolicyError {
	t.Helper()
	var perr PolicyError
	if err := json.NewDecoder(w.Body).Decode(&perr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return &perr
}

func decodeProvenance(t *testing.T, w *httptest.ResponseRecorder) *Decision {
	t.Helper()
	raw := w.Header().Get(ProvenanceHeader)
	if raw == "" {
		t.Fatal("provenance header missing")
	}
	var d Decision
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("decode provenance: %v", err)
	}
	return &d
}

func waitForDecisions(t *testing.T, sink *recordingSink, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sink.len() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sink has %d decisions, want %d", sink.len(), n)
}

func TestGatewayAllow(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "subject:alice", "org:acme", "US")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if f.next.callCount() != 1 {
		t.Fatal("allowed request should reach the handler")
	}
	if got := f.next.ident; got.Subject != "subject:alice" || got.Org != "org:acme" {
		t.Errorf("handler identity = %+v", got)
	}

	d := decodeProvenance(t, w)
	if d.Decision != DecisionAllow || d.Reason != "" {
		t.Errorf("provenance = %+v, want ALLOW", d)
	}
	if d.PolicyHash != "test-v1" || d.Subject != "subject:alice" {
		t.Errorf("provenance = %+v", d)
	}
	if d.ReqID == "" || d.TS == 0 {
		t.Errorf("provenance missing reqId/ts: %+v", d)
	}

	waitForDecisions(t, f.sink, 1)
	if rec := f.sink.last(); rec.Decision != "ALLOW" || rec.Subject != "subject:alice" {
		t.Errorf("audit record = %+v", rec)
	}
}

func TestGatewayInvalidHeaders(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "user:123<script>", "", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if perr := decodeError(t, w); perr.Code != CodeInvalidHeaders {
		t.Errorf("code = %s, want %s", perr.Code, CodeInvalidHeaders)
	}
	if f.next.callCount() != 0 {
		t.Error("rejected request must not reach the handler")
	}
	if d := decodeProvenance(t, w); d.Decision != DecisionDeny {
		t.Errorf("provenance = %+v, want DENY", d)
	}
}

func TestGatewayFrozenSubject(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "subject:frozen", "org:acme", "US")

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if perr := decodeError(t, w); perr.Code != CodeSubjectFrozen {
		t.Errorf("code = %s, want %s", perr.Code, CodeSubjectFrozen)
	}

	// The denial is cached under the identity tuple.
	cached := f.cache.Get(cache.Key{
		Subject: "subject:frozen", Org: "org:acme",
		Jurisdiction: "US", Endpoint: "/v1/compliance/evaluate",
	})
	if cached == nil || cached.Outcome != cache.OutcomeDeny || cached.Reason != CodeSubjectFrozen {
		t.Errorf("cached decision = %+v", cached)
	}

	// A second identical request is served from the cache with the same
	// denial.
	w2 := doRequest(f, "subject:frozen", "org:acme", "US")
	if w2.Code != http.StatusForbidden {
		t.Errorf("cached denial status = %d, want 403", w2.Code)
	}
}

func TestGatewayFrozenOrg(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "subject:alice", "org:sanctioned", "US")

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if perr := decodeError(t, w); perr.Code != CodeOrgFrozen {
		t.Errorf("code = %s, want %s", perr.Code, CodeOrgFrozen)
	}
}

func TestGatewayJurisdictionDenied(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "subject:alice", "org:acme", "KP")

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if perr := decodeError(t, w); perr.Code != CodeJurisdictionDeny {
		t.Errorf("code = %s, want %s", perr.Code, CodeJurisdictionDeny)
	}
	if d := decodeProvenance(t, w); d.Reason != CodeJurisdictionDeny {
		t.Errorf("provenance reason = %s", d.Reason)
	}
}

func TestGatewayDefaultJurisdiction(t *testing.T) {
	// No jurisdiction header: the configured default (US) applies, and US is
	// allowed.
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	w := doRequest(f, "subject:alice", "org:acme", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 via default jurisdiction", w.Code)
	}
	if f.next.ident.Jurisdiction != "US" {
		t.Errorf("jurisdiction = %s, want US", f.next.ident.Jurisdiction)
	}
}

func TestGatewayRateLimit(t *testing.T) {
	rs := testRuleset()
	rs.Quotas["org:tiny"] = policy.Quota{RPS: 1, Burst: 1}
	f := newFixture(t, &staticLoader{rs: rs})

	first := doRequest(f, "subject:alice", "org:tiny", "US")
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d", first.Code)
	}

	// The first request cached an ALLOW for this exact tuple. A cached allow
	// still runs the limiter, so the identical repeat within the window is
	// rejected rather than replayed from the cache.
	w := doRequest(f, "subject:alice", "org:tiny", "US")

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if f.next.callCount() != 1 {
		t.Error("rate-limited request must not reach the handler")
	}
	if perr := decodeError(t, w); perr.Code != CodeRateLimitExceeded {
		t.Errorf("code = %s, want %s", perr.Code, CodeRateLimitExceeded)
	}
	if got := w.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Errorf("X-RateLimit-Limit = %q, want 1", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestGatewayQuotaOverride(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	// org:premium carries burst 200: a burst of 20 requests to distinct
	// endpoints (each a decision-cache miss) all clear the limiter.
	for i := 0; i < 20; i++ {
		r := httptest.NewRequest("POST", fmt.Sprintf("/v1/item/%d", i), nil)
		r.Header.Set(SubjectHeader, "subject:bursty")
		r.Header.Set(OrgHeader, "org:premium")
		r.Header.Set(JurisdictionHeader, "US")
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200 under premium quota", i, w.Code)
		}
	}
}

func TestGatewayEngineErrorFailsClosed(t *testing.T) {
	f := newFixture(t, &staticLoader{err: errors.New("policy store down")})

	w := doRequest(f, "subject:alice", "org:acme", "US")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if perr := decodeError(t, w); perr.Code != CodeEngineError {
		t.Errorf("code = %s, want %s", perr.Code, CodeEngineError)
	}
	if f.next.callCount() != 0 {
		t.Error("request must not pass through on engine error")
	}
}

func TestGatewayHonorsInboundRequestID(t *testing.T) {
	f := newFixture(t, &staticLoader{rs: testRuleset()})

	r := httptest.NewRequest("POST", "/v1/compliance/evaluate", nil)
	r.Header.Set(RequestIDHeader, "req-12345")
	r.Header.Set(SubjectHeader, "subject:alice")
	r.Header.Set(OrgHeader, "org:acme")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)

	if d := decodeProvenance(t, w); d.ReqID != "req-12345" {
		t.Errorf("provenance reqId = %s, want the inbound id", d.ReqID)
	}
}

func TestDenyTTLs(t *testing.T) {
	tests := []struct {
		code string
		want time.Duration
	}{
		{CodeSubjectFrozen, time.Minute},
		{CodeOrgFrozen, time.Minute},
		{CodeJurisdictionDeny, 5 * time.Minute},
		{CodeRateLimitExceeded, time.Second},
	}
	for _, tt := range tests {
		if got := denyTTL(tt.code); got != tt.want {
			t.Errorf("denyTTL(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}
