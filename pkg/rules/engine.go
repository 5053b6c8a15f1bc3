package rules

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"veria-hq/arbiter/pkg/audit"
)

// Source provides rule sets to the engine. The engine treats the source as
// untrusted, slow, and intermittently failing.
type Source interface {
	// LoadRules loads the full rule set. Implementations should honor the
	// context deadline.
	LoadRules(ctx context.Context) ([]Rule, error)
}

// Watcher is an optional Source extension for push-based change notification.
type Watcher interface {
	// Watch invokes onChange whenever the underlying rule document changes.
	// It blocks until the context is cancelled.
	Watch(ctx context.Context, onChange func()) error
}

// MetricsRecorder receives per-rule evaluation observations. Implemented by
// the telemetry collector; nil disables recording.
type MetricsRecorder interface {
	RecordRuleEvaluation(ruleType, ruleID string, passed bool, duration time.Duration)
}

// EngineConfig contains configuration for the rule engine.
type EngineConfig struct {
	// RingCapacity bounds the recent-evaluations ring buffer.
	// Default: 1000
	RingCapacity int

	// AuditBuffer is the size of the async audit write channel.
	// Default: 1000
	AuditBuffer int

	// LoadTimeout bounds a single load from the source.
	// Default: 5 seconds
	LoadTimeout time.Duration

	// RefreshInterval is the cadence for periodic reloads.
	// Default: 60 seconds
	RefreshInterval time.Duration
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		RingCapacity:    1000,
		AuditBuffer:     1000,
		LoadTimeout:     5 * time.Second,
		RefreshInterval: 60 * time.Second,
	}
}

// Engine evaluates compliance rules against request contexts.
//
// The loaded rule set is a read-mostly snapshot behind an RWMutex, replaced
// wholesale on reload so readers never observe a half-updated list. Audit
// writes drain through a bounded channel so evaluation never blocks on
// storage.
type Engine struct {
	config *EngineConfig
	source Source
	sink   audit.Sink
	logger *slog.Logger

	// metrics receives evaluation observations (optional).
	metrics MetricsRecorder

	// ring holds recent evaluation results for inspection.
	ring *Ring

	// mu protects the snapshot fields below.
	mu     sync.RWMutex
	rules  []Rule
	loaded bool

	auditCh chan *audit.EvaluationRecord
	stopCh  chan struct{}
	wg      sync.WaitGroup

	closeOnce sync.Once
}

// NewEngine creates a rule engine and attempts an initial load. An initial
// load failure is logged, not fatal: the engine stays fail-closed until a
// load succeeds.
func NewEngine(config *EngineConfig, source Source, sink audit.Sink, logger *slog.Logger) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:  config,
		source:  source,
		sink:    sink,
		logger:  logger.With("component", "rules.engine"),
		ring:    NewRing(config.RingCapacity),
		auditCh: make(chan *audit.EvaluationRecord, config.AuditBuffer),
		stopCh:  make(chan struct{}),
	}

	e.wg.Add(1)
	go e.auditWorker()

	if err := e.Reload(context.Background()); err != nil {
		e.logger.Warn("initial rule load failed, engine is fail-closed until a load succeeds", "error", err)
	}

	return e
}

// SetMetrics attaches a metrics recorder. Call before serving traffic.
func (e *Engine) SetMetrics(m MetricsRecorder) {
	e.metrics = m
}

// Ring exposes the recent-evaluations buffer for inspection endpoints.
func (e *Engine) Ring() *Ring {
	return e.ring
}

// Rules returns the current snapshot (priority order). The returned slice
// must not be mutated.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// Reload pulls a fresh rule set from the source and swaps it in atomically.
// On failure the last good snapshot is kept and the error is returned for
// the caller to log; in-flight and subsequent evaluations keep running
// against the old snapshot.
func (e *Engine) Reload(ctx context.Context) error {
	select {
	case <-e.stopCh:
		return ErrEngineClosed
	default:
	}

	loadCtx, cancel := context.WithTimeout(ctx, e.config.LoadTimeout)
	defer cancel()

	loaded, err := e.source.LoadRules(loadCtx)
	if err != nil {
		return err
	}

	// Stable sort by priority descending; ties preserve load order.
	sorted := make([]Rule, len(loaded))
	copy(sorted, loaded)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	e.mu.Lock()
	e.rules = sorted
	e.loaded = true
	e.mu.Unlock()

	e.logger.Info("rule set loaded", "rules", len(sorted))
	return nil
}

// StartAutoReload refreshes the rule set on the configured cadence, retrying
// with exponential backoff after failures, and subscribes to source change
// notifications when the source supports them. It returns immediately;
// background work stops when ctx is cancelled or the engine is closed.
func (e *Engine) StartAutoReload(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		interval := e.config.RefreshInterval
		backoff := time.Second

		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			case <-timer.C:
			}

			if err := e.Reload(ctx); err != nil {
				e.logger.Warn("rule refresh failed, keeping last good snapshot",
					"error", err,
					"retry_in", backoff,
				)
				timer.Reset(backoff)
				backoff *= 2
				if backoff > interval {
					backoff = interval
				}
				continue
			}

			backoff = time.Second
			timer.Reset(interval)
		}
	}()

	if watcher, ok := e.source.(Watcher); ok {
		// Tie the watch lifetime to both the caller's context and Close.
		watchCtx, cancel := context.WithCancel(ctx)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			select {
			case <-e.stopCh:
				cancel()
			case <-watchCtx.Done():
			}
		}()

		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			defer cancel()
			err := watcher.Watch(watchCtx, func() {
				if err := e.Reload(watchCtx); err != nil {
					e.logger.Warn("rule reload on change failed", "error", err)
				}
			})
			if err != nil && watchCtx.Err() == nil {
				e.logger.Warn("rule source watch stopped", "error", err)
			}
		}()
	}
}

// Evaluate runs the loaded rule set against the context, highest priority
// first, optionally filtered by rule type ("" evaluates all types).
//
// Evaluation stops immediately after the first failing rule whose chosen
// action is reject: lower-priority rules are not evaluated for that request.
//
// Evaluate fails closed with ErrNoRules when no rule set has ever loaded.
func (e *Engine) Evaluate(ctx context.Context, rc *Context, typeFilter RuleType) ([]EvaluationResult, error) {
	e.mu.RLock()
	snapshot := e.rules
	loaded := e.loaded
	e.mu.RUnlock()

	if !loaded {
		return nil, ErrNoRules
	}

	results := make([]EvaluationResult, 0, len(snapshot))

	for i := range snapshot {
		rule := &snapshot[i]
		if !rule.Enabled {
			continue
		}
		if typeFilter != "" && rule.Type != typeFilter {
			continue
		}

		result := e.evaluateRule(rule, rc)
		results = append(results, result)

		e.ring.Push(result)
		e.enqueueAudit(rc, result)
		if e.metrics != nil {
			e.metrics.RecordRuleEvaluation(string(rule.Type), rule.ID, result.Passed, result.Duration)
		}

		// Deny wins: a failed rule that rejects ends the pass.
		if !result.Passed && result.Action != nil && result.Action.Type == ActionReject {
			break
		}
	}

	return results, nil
}

// evaluateRule folds the rule's condition sequence left to right and chooses
// the resulting action.
//
// The fold groups left-associatively: conditions join the running AND-group
// by default, and an OR-tagged condition closes the current group and starts
// a new one. Deeply nested boolean expressions are deliberately not
// supported.
func (e *Engine) evaluateRule(rule *Rule, rc *Context) EvaluationResult {
	start := time.Now()

	var matched []Condition
	overall := true
	group := true
	lastLogic := LogicAnd

	for _, cond := range rule.Conditions {
		value, present := extractField(cond.Field, rc)
		condResult := evaluateOperator(cond.Operator, value, present, cond.Value, e.logger)

		if condResult {
			matched = append(matched, cond)
		}

		if cond.Logic == LogicOr {
			if lastLogic == LogicAnd {
				overall = overall && group
				group = condResult
			} else {
				group = group || condResult
			}
		} else {
			group = group && condResult
		}

		lastLogic = cond.Logic
		if lastLogic == "" {
			lastLogic = LogicAnd
		}
	}

	overall = overall && group

	result := EvaluationResult{
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Passed:            overall,
		Action:            chooseAction(rule, overall),
		MatchedConditions: matched,
		Duration:          time.Since(start),
	}
	if rule.Metadata != nil {
		result.Context = map[string]any{"rule_metadata": rule.Metadata}
	}

	return result
}

// chooseAction picks the rule's action for the given outcome: approve first
// on pass; reject, then flag, then manual_review on failure; otherwise the
// rule's first action.
func chooseAction(rule *Rule, passed bool) *Action {
	if len(rule.Actions) == 0 {
		return nil
	}

	if passed {
		for i := range rule.Actions {
			if rule.Actions[i].Type == ActionApprove {
				return &rule.Actions[i]
			}
		}
		return &rule.Actions[0]
	}

	for _, want := range []ActionType{ActionReject, ActionFlag, ActionManualReview} {
		for i := range rule.Actions {
			if rule.Actions[i].Type == want {
				return &rule.Actions[i]
			}
		}
	}
	return &rule.Actions[0]
}

// enqueueAudit hands the result to the async audit worker. A full buffer
// drops the record with a warning rather than blocking evaluation.
func (e *Engine) enqueueAudit(rc *Context, result EvaluationResult) {
	if e.sink == nil {
		return
	}

	record := &audit.EvaluationRecord{
		ID:        uuid.NewString(),
		RuleID:    result.RuleID,
		RuleName:  result.RuleName,
		Passed:    result.Passed,
		CreatedAt: time.Now().UTC(),
	}
	if result.Action != nil {
		record.Action = string(result.Action.Type)
	}
	if data, err := json.Marshal(rc); err == nil {
		record.Context = string(data)
	}

	select {
	case e.auditCh <- record:
	default:
		e.logger.Warn("evaluation audit buffer full, dropping record",
			"rule_id", record.RuleID,
		)
	}
}

// auditWorker drains the audit channel. Sink failures are logged and the
// record is dropped; the durable log is best effort.
func (e *Engine) auditWorker() {
	defer e.wg.Done()

	for {
		select {
		case record := <-e.auditCh:
			e.writeAudit(record)
		case <-e.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case record := <-e.auditCh:
					e.writeAudit(record)
				default:
					return
				}
			}
		}
	}
}

func (e *Engine) writeAudit(record *audit.EvaluationRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.sink.AppendEvaluation(ctx, record); err != nil {
		e.logger.Error("failed to append evaluation audit record",
			"rule_id", record.RuleID,
			"error", err,
		)
	}
}

// Close stops background workers and flushes queued audit records.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.stopCh)
		e.wg.Wait()
	})
	return nil
}
