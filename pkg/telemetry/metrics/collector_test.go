package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"veria-hq/arbiter/pkg/config"
)

func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "test",
		Subsystem: "arbiter",
	}
}

func TestNewCollector(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := NewCollector(testConfig(), registry)

	if collector == nil {
		t.Fatal("expected non-nil collector")
	}
	if collector.Registry() != registry {
		t.Error("collector should register onto the provided registry")
	}
}

func TestNewCollectorNilRegistry(t *testing.T) {
	collector := NewCollector(testConfig(), nil)
	if collector.Registry() == nil {
		t.Fatal("nil registry should be replaced with a fresh one")
	}
}

func TestNewCollectorDefaultNames(t *testing.T) {
	cfg := &config.MetricsConfig{Enabled: true}
	NewCollector(cfg, prometheus.NewRegistry())

	if cfg.Namespace != "veria" || cfg.Subsystem != "arbiter" {
		t.Errorf("namespace/subsystem = %q/%q, want veria/arbiter", cfg.Namespace, cfg.Subsystem)
	}
}

func TestRecordDecision(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordDecision("ALLOW", "", 50*time.Microsecond)
	collector.RecordDecision("DENY", "POLICY_ERR_SUBJECT_FROZEN", 20*time.Microsecond)

	// An empty reason is normalized so the label set stays bounded.
	allow := testutil.ToFloat64(collector.decisionsTotal.WithLabelValues("ALLOW", "none"))
	if allow != 1 {
		t.Errorf("allow count = %f, want 1", allow)
	}
	deny := testutil.ToFloat64(collector.decisionsTotal.WithLabelValues("DENY", "POLICY_ERR_SUBJECT_FROZEN"))
	if deny != 1 {
		t.Errorf("deny count = %f, want 1", deny)
	}
}

func TestRecordCacheCounters(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordCacheHit()
	collector.RecordCacheHit()
	collector.RecordCacheMiss()

	if hits := testutil.ToFloat64(collector.cacheHitsTotal); hits != 2 {
		t.Errorf("hits = %f, want 2", hits)
	}
	if misses := testutil.ToFloat64(collector.cacheMissesTotal); misses != 1 {
		t.Errorf("misses = %f, want 1", misses)
	}
}

func TestRecordRateLimitExceeded(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRateLimitExceeded()

	if count := testutil.ToFloat64(collector.rateLimitExceededTotal); count != 1 {
		t.Errorf("count = %f, want 1", count)
	}
}

func TestRecordRuleEvaluation(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordRuleEvaluation("kyc", "kyc-001", true, 10*time.Microsecond)
	collector.RecordRuleEvaluation("kyc", "kyc-002", false, 10*time.Microsecond)
	collector.RecordRuleEvaluation("aml", "aml-001", false, 10*time.Microsecond)

	passed := testutil.ToFloat64(collector.ruleEvaluationsTotal.WithLabelValues("kyc", "passed"))
	if passed != 1 {
		t.Errorf("kyc passed = %f, want 1", passed)
	}
	failed := testutil.ToFloat64(collector.ruleEvaluationsTotal.WithLabelValues("aml", "failed"))
	if failed != 1 {
		t.Errorf("aml failed = %f, want 1", failed)
	}
}

func TestRecordEngineError(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	collector.RecordEngineError()

	if count := testutil.ToFloat64(collector.engineErrorsTotal); count != 1 {
		t.Errorf("count = %f, want 1", count)
	}
}

func TestCollectorDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.RecordDecision("ALLOW", "", time.Millisecond)
	collector.RecordCacheHit()
	collector.RecordCacheMiss()
	collector.RecordRateLimitExceeded()
	collector.RecordRuleEvaluation("kyc", "kyc-001", true, time.Millisecond)
	collector.RecordEngineError()

	if count := testutil.ToFloat64(collector.engineErrorsTotal); count != 0 {
		t.Errorf("disabled collector recorded %f engine errors", count)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.RecordCacheHit()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("expected a non-empty exposition body")
	}
}

func TestCollectorConcurrentRecording(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				collector.RecordDecision("ALLOW", "", time.Microsecond)
				collector.RecordCacheHit()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	count := testutil.ToFloat64(collector.decisionsTotal.WithLabelValues("ALLOW", "none"))
	if count != 1000 {
		t.Errorf("decisions = %f, want 1000", count)
	}
}
