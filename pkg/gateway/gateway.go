package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"veria-hq/arbiter/pkg/audit"
	"veria-hq/arbiter/pkg/cache"
	"veria-hq/arbiter/pkg/policy"
	"veria-hq/arbiter/pkg/ratelimit"
)

// Denial cache TTLs, per denial reason. Frozen identities change rarely,
// jurisdiction gates even less, rate-limit denials only hold for the current
// window.
const (
	frozenDenyTTL       = 60 * time.Second
	jurisdictionDenyTTL = 300 * time.Second
	rateLimitDenyTTL    = 1 * time.Second
)

// MetricsRecorder receives gateway decision metrics. A nil recorder disables
// metric collection.
type MetricsRecorder interface {
	RecordDecision(decision, reason string, latency time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordRateLimitExceeded()
	RecordEngineError()
}

// Gateway enforces the coarse access policy in front of the protected
// handlers. All fields are set at construction and never mutated, so a single
// Gateway serves concurrent requests without locking of its own.
type Gateway struct {
	provider *policy.Provider
	cache    *cache.DecisionCache
	limiter  *ratelimit.FixedWindowLimiter
	sink     audit.Sink
	metrics  MetricsRecorder

	defaultJurisdiction string
	logger              *slog.Logger
}

// Config assembles a Gateway's collaborators. Sink and Metrics may be nil;
// Provider, Cache, and Limiter are required.
type Config struct {
	Provider *policy.Provider
	Cache    *cache.DecisionCache
	Limiter  *ratelimit.FixedWindowLimiter
	Sink     audit.Sink
	Metrics  MetricsRecorder

	// DefaultJurisdiction applies when a request declares none.
	DefaultJurisdiction string
}

// New creates a Gateway.
func New(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	dj := cfg.DefaultJurisdiction
	if dj == "" {
		dj = "US"
	}
	return &Gateway{
		provider:            cfg.Provider,
		cache:               cfg.Cache,
		limiter:             cfg.Limiter,
		sink:                cfg.Sink,
		metrics:             cfg.Metrics,
		defaultJurisdiction: dj,
		logger:              logger.With("component", "gateway"),
	}
}

// Middleware applies the policy gates in order and either denies the request
// or forwards it to next with the decision, identity, and redaction
// annotation on the context.
func (g *Gateway) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := GetRequestID(r.Context())
		if reqID == "" {
			reqID = uuid.NewString()
		}

		ident, perr := SanitizeHeaders(r, g.defaultJurisdiction)
		if perr != nil {
			// No trusted identity to attribute the denial to, so no cache
			// entry and no audit record.
			d := newDecision(reqID, Identity{}, "", DecisionDeny, perr.Code)
			setProvenance(w, d)
			g.recordMetrics(DecisionDeny, perr.Code, start)
			writeError(w, perr)
			return
		}

		ruleset, hash, err := g.provider.Get(r.Context())
		if err != nil {
			g.logger.Error("ruleset unavailable, failing closed",
				"request_id", reqID,
				"error", err,
			)
			if g.metrics != nil {
				g.metrics.RecordEngineError()
			}
			d := newDecision(reqID, ident, "", DecisionDeny, CodeEngineError)
			setProvenance(w, d)
			g.recordMetrics(DecisionDeny, CodeEngineError, start)
			writeError(w, &PolicyError{
				Code:    CodeEngineError,
				Message: "policy engine unavailable",
			})
			return
		}

		key := cache.Key{
			Subject:      ident.Subject,
			Org:          ident.Org,
			Jurisdiction: ident.Jurisdiction,
			Endpoint:     r.URL.Path,
		}

		// Only a cached denial short-circuits. A cached ALLOW still runs the
		// full gate chain so rate limiting keeps counting every request; the
		// hit only skips the cache re-fill.
		cachedAllow := false
		if cached := g.cache.Get(key); cached != nil {
			if g.metrics != nil {
				g.metrics.RecordCacheHit()
			}
			if cached.Outcome == cache.OutcomeDeny {
				g.deny(w, r, reqID, ident, hash, cached.Reason, start, false)
				return
			}
			cachedAllow = true
		} else if g.metrics != nil {
			g.metrics.RecordCacheMiss()
		}

		if ruleset.Denied(ident.Subject) {
			g.deny(w, r, reqID, ident, hash, CodeSubjectFrozen, start, true)
			return
		}
		if ruleset.Denied(ident.Org) {
			g.deny(w, r, reqID, ident, hash, CodeOrgFrozen, start, true)
			return
		}

		if !ruleset.JurisdictionAllowed(ident.Jurisdiction) {
			g.deny(w, r, reqID, ident, hash, CodeJurisdictionDeny, start, true)
			return
		}

		quota := ruleset.QuotaFor(ident.Org)
		res := g.limiter.Check(ident.Org+":"+ident.Subject, quota.Burst)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			if g.metrics != nil {
				g.metrics.RecordRateLimitExceeded()
			}
			g.deny(w, r, reqID, ident, hash, CodeRateLimitExceeded, start, true)
			return
		}

		g.allow(w, r, next, reqID, ident, hash, ruleset, start, !cachedAllow)
	})
}

// deny writes the denial response and, when fill is set, caches it with the
// reason's TTL.
func (g *Gateway) deny(w http.ResponseWriter, r *http.Request, reqID string, ident Identity, hash, code string, start time.Time, fill bool) {
	if fill {
		key := cache.Key{
			Subject:      ident.Subject,
			Org:          ident.Org,
			Jurisdiction: ident.Jurisdiction,
			Endpoint:     r.URL.Path,
		}
		g.cache.Set(key, cache.OutcomeDeny, code, denyTTL(code))
	}

	// Cached rate-limit denials skip the limiter, so the hint header is set
	// here when the limiter did not.
	if code == CodeRateLimitExceeded && w.Header().Get("Retry-After") == "" {
		w.Header().Set("Retry-After", "1")
	}

	d := newDecision(reqID, ident, hash, DecisionDeny, code)
	setProvenance(w, d)
	g.recordMetrics(DecisionDeny, code, start)
	g.recordAudit(d)
	writeError(w, &PolicyError{Code: code, Message: denyMessage(code)})
}

// allow attaches the decision and redaction annotation to the context, fills
// the cache when fill is set, and forwards the request.
func (g *Gateway) allow(w http.ResponseWriter, r *http.Request, next http.Handler, reqID string, ident Identity, hash string, ruleset *policy.Ruleset, start time.Time, fill bool) {
	if fill {
		key := cache.Key{
			Subject:      ident.Subject,
			Org:          ident.Org,
			Jurisdiction: ident.Jurisdiction,
			Endpoint:     r.URL.Path,
		}
		g.cache.Set(key, cache.OutcomeAllow, "", 0)
	}

	d := newDecision(reqID, ident, hash, DecisionAllow, "")
	setProvenance(w, d)
	g.recordMetrics(DecisionAllow, "", start)
	g.recordAudit(d)

	ctx := r.Context()
	ctx = context.WithValue(ctx, IdentityKey, ident)
	ctx = context.WithValue(ctx, DecisionKey, d)
	if ruleset.Redaction != nil {
		ctx = context.WithValue(ctx, RedactionKey, ruleset.Redaction)
	}

	next.ServeHTTP(w, r.WithContext(ctx))
}

func (g *Gateway) recordMetrics(decision, reason string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordDecision(decision, reason, time.Since(start))
	}
}

// recordAudit appends the decision record off the request path. Failures are
// logged and dropped; audit writes never fail a request.
func (g *Gateway) recordAudit(d *Decision) {
	if g.sink == nil {
		return
	}
	record := &audit.DecisionRecord{
		ID:         uuid.NewString(),
		RequestID:  d.ReqID,
		Subject:    d.Subject,
		Org:        d.Org,
		PolicyHash: d.PolicyHash,
		Decision:   d.Decision,
		Reason:     d.Reason,
		CreatedAt:  time.UnixMilli(d.TS).UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := g.sink.AppendDecision(ctx, record); err != nil {
			g.logger.Warn("decision audit append failed",
				"request_id", record.RequestID,
				"error", err,
			)
		}
	}()
}

// denyTTL returns the decision cache TTL for a denial reason.
func denyTTL(code string) time.Duration {
	switch code {
	case CodeSubjectFrozen, CodeOrgFrozen:
		return frozenDenyTTL
	case CodeJurisdictionDeny:
		return jurisdictionDenyTTL
	case CodeRateLimitExceeded:
		return rateLimitDenyTTL
	default:
		return rateLimitDenyTTL
	}
}

// denyMessage returns the client-facing message for a denial reason. Messages
// are deliberately generic; policy content never leaks through them.
func denyMessage(code string) string {
	switch code {
	case CodeSubjectFrozen:
		return "subject is frozen"
	case CodeOrgFrozen:
		return "organization is frozen"
	case CodeJurisdictionDeny:
		return "jurisdiction not permitted"
	case CodeRateLimitExceeded:
		return "rate limit exceeded"
	default:
		return "request denied"
	}
}

// GetRedaction extracts the redaction annotation from the context. Returns
// nil when the active ruleset declares none.
func GetRedaction(ctx context.Context) *policy.Redaction {
	if red, ok := ctx.Value(RedactionKey).(*policy.Redaction); ok {
		return red
	}
	return nil
}
