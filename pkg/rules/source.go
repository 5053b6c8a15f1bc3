package rules

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// ruleDocument is the on-disk shape of a rule set. YAML is a superset of
// JSON, so both encodings load through the same path.
type ruleDocument struct {
	Rules []Rule `yaml:"rules"`
}

// FileSourceConfig contains configuration for the file-backed rule source.
type FileSourceConfig struct {
	// Path is the rule document to load.
	Path string

	// MaxFileSize rejects oversized documents.
	// Default: 5MB
	MaxFileSize int64

	// DebounceInterval coalesces bursts of file events before notifying.
	// Default: 100ms
	DebounceInterval time.Duration
}

// DefaultFileSourceConfig returns the default file source configuration.
func DefaultFileSourceConfig(path string) *FileSourceConfig {
	return &FileSourceConfig{
		Path:             path,
		MaxFileSize:      5 * 1024 * 1024,
		DebounceInterval: 100 * time.Millisecond,
	}
}

// FileSource loads rule sets from a YAML or JSON document on disk and
// implements Watcher for hot reload.
type FileSource struct {
	config *FileSourceConfig
	logger *slog.Logger
}

// NewFileSource creates a file-backed rule source.
func NewFileSource(config *FileSourceConfig, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		config: config,
		logger: logger.With("component", "rules.source"),
	}
}

// LoadRules reads, parses, and validates the rule document.
func (s *FileSource) LoadRules(ctx context.Context) ([]Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(s.config.Path)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "stat failed", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{Source: s.config.Path, Message: "not a regular file"}
	}
	if info.Size() > s.config.MaxFileSize {
		return nil, &LoadError{
			Source:  s.config.Path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), s.config.MaxFileSize),
		}
	}

	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "read failed", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Source: s.config.Path, Message: "file contains invalid UTF-8 encoding"}
	}

	var doc ruleDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "parse failed", Cause: err}
	}

	if err := ValidateRules(doc.Rules); err != nil {
		return nil, err
	}

	return doc.Rules, nil
}

// Watch notifies onChange when the rule document changes. Events within the
// debounce interval coalesce into a single notification. Watch blocks until
// the context is cancelled.
func (s *FileSource) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files on save, which would drop
	// a watch on the file itself.
	dir := filepath.Dir(s.config.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	target := filepath.Clean(s.config.Path)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(s.config.DebounceInterval, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			s.logger.Debug("rule document changed", "path", s.config.Path)
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("rule watcher error", "error", err)
		}
	}
}

// ValidateRules checks structural validity of a loaded rule set: unique,
// non-empty IDs, known types, operators, logic tags, and action types, and
// list-valued targets for membership operators.
func ValidateRules(ruleSet []Rule) error {
	seen := make(map[string]struct{}, len(ruleSet))

	for i := range ruleSet {
		rule := &ruleSet[i]

		if rule.ID == "" {
			return &ValidationError{FieldPath: fmt.Sprintf("rules[%d].id", i), Message: "rule id is required"}
		}
		if _, dup := seen[rule.ID]; dup {
			return &ValidationError{RuleID: rule.ID, Message: "duplicate rule id"}
		}
		seen[rule.ID] = struct{}{}

		if !rule.Type.Valid() {
			return &ValidationError{
				RuleID:    rule.ID,
				FieldPath: "type",
				Message:   fmt.Sprintf("unknown rule type %q", rule.Type),
			}
		}

		for j, cond := range rule.Conditions {
			if cond.Field == "" {
				return &ValidationError{
					RuleID:    rule.ID,
					FieldPath: fmt.Sprintf("conditions[%d].field", j),
					Message:   "condition field is required",
				}
			}
			if _, ok := operatorTable[cond.Operator]; !ok {
				return &ValidationError{
					RuleID:    rule.ID,
					FieldPath: fmt.Sprintf("conditions[%d].operator", j),
					Message:   fmt.Sprintf("unknown operator %q", cond.Operator),
				}
			}
			if cond.Logic != "" && cond.Logic != LogicAnd && cond.Logic != LogicOr {
				return &ValidationError{
					RuleID:    rule.ID,
					FieldPath: fmt.Sprintf("conditions[%d].logic", j),
					Message:   fmt.Sprintf("logic must be AND or OR, got %q", cond.Logic),
				}
			}
			if cond.Operator == OperatorIn || cond.Operator == OperatorNotIn {
				if _, ok := cond.Value.([]any); !ok {
					return &ValidationError{
						RuleID:    rule.ID,
						FieldPath: fmt.Sprintf("conditions[%d].value", j),
						Message:   fmt.Sprintf("operator %q requires a list value", cond.Operator),
					}
				}
			}
		}

		for j, action := range rule.Actions {
			if !action.Type.Valid() {
				return &ValidationError{
					RuleID:    rule.ID,
					FieldPath: fmt.Sprintf("actions[%d].type", j),
					Message:   fmt.Sprintf("unknown action type %q", action.Type),
				}
			}
		}
	}

	return nil
}
