// Package metrics exposes Prometheus metrics for the decision engine:
// gateway decision counts and latency, decision cache hits and misses,
// rate-limit rejections, and per-rule evaluation counts and durations.
package metrics
