package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"veria-hq/arbiter/pkg/config"
)

// Collector owns all Prometheus metrics for the decision engine. It is an
// explicitly injected object, not a global, so tests can run isolated
// registries.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Gateway decision metrics
	decisionsTotal  *prometheus.CounterVec
	decisionLatency prometheus.Histogram

	// Decision cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter

	// Rate limiter metrics
	rateLimitExceededTotal prometheus.Counter

	// Rule engine metrics
	ruleEvaluationsTotal   *prometheus.CounterVec
	ruleEvaluationDuration *prometheus.HistogramVec

	// Engine failures (ruleset load, audit writes)
	engineErrorsTotal prometheus.Counter
}

// NewCollector creates and registers all metrics with the registry. A nil
// registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "veria"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "arbiter"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decisions_total",
				Help:      "Total gateway policy decisions by outcome and reason",
			},
			[]string{"decision", "reason"},
		),

		decisionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_decision_duration_seconds",
				Help:      "Gateway decision latency in seconds",
				// Decisions are in-memory checks; sub-millisecond is the norm.
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),

		cacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_cache_hits_total",
				Help:      "Decision cache hits",
			},
		),

		cacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "decision_cache_misses_total",
				Help:      "Decision cache misses",
			},
		),

		rateLimitExceededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rate_limit_exceeded_total",
				Help:      "Requests rejected by the rate limiter",
			},
		),

		ruleEvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluations_total",
				Help:      "Total compliance rule evaluations by type and result",
			},
			[]string{"rule_type", "result"},
		),

		ruleEvaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_evaluation_duration_seconds",
				Help:      "Compliance rule evaluation duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"rule_type"},
		),

		engineErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "engine_errors_total",
				Help:      "Internal engine failures (ruleset load, audit writes)",
			},
		),
	}

	registry.MustRegister(
		c.decisionsTotal,
		c.decisionLatency,
		c.cacheHitsTotal,
		c.cacheMissesTotal,
		c.rateLimitExceededTotal,
		c.ruleEvaluationsTotal,
		c.ruleEvaluationDuration,
		c.engineErrorsTotal,
	)

	return c
}

// RecordDecision records one gateway decision.
func (c *Collector) RecordDecision(decision, reason string, latency time.Duration) {
	if !c.config.Enabled {
		return
	}
	if reason == "" {
		reason = "none"
	}
	c.decisionsTotal.WithLabelValues(decision, reason).Inc()
	c.decisionLatency.Observe(latency.Seconds())
}

// RecordCacheHit records a decision cache hit.
func (c *Collector) RecordCacheHit() {
	if c.config.Enabled {
		c.cacheHitsTotal.Inc()
	}
}

// RecordCacheMiss records a decision cache miss.
func (c *Collector) RecordCacheMiss() {
	if c.config.Enabled {
		c.cacheMissesTotal.Inc()
	}
}

// RecordRateLimitExceeded records a 429.
func (c *Collector) RecordRateLimitExceeded() {
	if c.config.Enabled {
		c.rateLimitExceededTotal.Inc()
	}
}

// RecordRuleEvaluation records one compliance rule evaluation. Satisfies the
// rule engine's MetricsRecorder.
func (c *Collector) RecordRuleEvaluation(ruleType, ruleID string, passed bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	result := "failed"
	if passed {
		result = "passed"
	}
	c.ruleEvaluationsTotal.WithLabelValues(ruleType, result).Inc()
	c.ruleEvaluationDuration.WithLabelValues(ruleType).Observe(duration.Seconds())
}

// RecordEngineError records an internal engine failure.
func (c *Collector) RecordEngineError() {
	if c.config.Enabled {
		c.engineErrorsTotal.Inc()
	}
}

// Handler returns the /metrics endpoint handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
