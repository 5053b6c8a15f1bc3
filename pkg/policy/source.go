package policy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// Loader loads the ruleset document from its backing store. The provider
// treats loaders as untrusted, slow, and intermittently failing.
type Loader interface {
	LoadRuleset(ctx context.Context) (*Ruleset, error)
}

// FileLoader reads the ruleset from a YAML or JSON document on disk.
type FileLoader struct {
	// Path is the ruleset document to load.
	Path string

	// MaxFileSize rejects oversized documents. Zero applies the 1MB default.
	MaxFileSize int64
}

// LoadRuleset reads and parses the ruleset document.
func (l *FileLoader) LoadRuleset(ctx context.Context) (*Ruleset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxSize := l.MaxFileSize
	if maxSize <= 0 {
		maxSize = 1024 * 1024
	}

	info, err := os.Stat(l.Path)
	if err != nil {
		return nil, &LoadError{Source: l.Path, Message: "stat failed", Cause: err}
	}
	if info.Size() > maxSize {
		return nil, &LoadError{
			Source:  l.Path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), maxSize),
		}
	}

	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, &LoadError{Source: l.Path, Message: "read failed", Cause: err}
	}
	if !utf8.Valid(data) {
		return nil, &LoadError{Source: l.Path, Message: "file contains invalid UTF-8 encoding"}
	}

	var rs Ruleset
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, &LoadError{Source: l.Path, Message: "parse failed", Cause: err}
	}

	if rs.Jurisdictions == nil {
		return nil, &LoadError{Source: l.Path, Message: "ruleset declares no jurisdictions"}
	}

	return &rs, nil
}

// ProviderConfig contains configuration for the caching provider.
type ProviderConfig struct {
	// TTL is how long a loaded snapshot stays fresh before a refresh.
	// Default: 60 seconds
	TTL time.Duration

	// LoadTimeout bounds a single load from the backing store.
	// Default: 5 seconds
	LoadTimeout time.Duration
}

// DefaultProviderConfig returns the default provider configuration.
func DefaultProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		TTL:         60 * time.Second,
		LoadTimeout: 5 * time.Second,
	}
}

// Provider serves the current ruleset snapshot to the gateway.
//
// Snapshots refresh on a TTL cadence and swap atomically: readers mid-request
// finish against the snapshot they started with. A refresh failure keeps the
// last good snapshot, backs off before the next load attempt, and never
// blocks request handling; only when no snapshot has ever loaded does Get
// fail (and the gateway fails closed).
type Provider struct {
	config *ProviderConfig
	loader Loader
	logger *slog.Logger

	mu        sync.RWMutex
	snapshot  *Ruleset
	hash      string
	fetchedAt time.Time

	// Backoff state after a failed refresh: no re-attempt before retryAt,
	// lastErr is the failure being backed off from. Guarded by mu.
	retryAt time.Time
	backoff time.Duration
	lastErr error

	// refreshMu serializes refreshes so a thundering herd of expired reads
	// triggers one load, not many.
	refreshMu sync.Mutex
}

// NewProvider creates a caching provider around the loader.
func NewProvider(config *ProviderConfig, loader Loader, logger *slog.Logger) *Provider {
	if config == nil {
		config = DefaultProviderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		config: config,
		loader: loader,
		logger: logger.With("component", "policy.provider"),
	}
}

// Get returns the current ruleset and its version hash, refreshing first when
// the snapshot has expired. A failed refresh falls back to the last good
// snapshot; ErrNoRuleset is returned only when nothing has ever loaded.
func (p *Provider) Get(ctx context.Context) (*Ruleset, string, error) {
	p.mu.RLock()
	snapshot := p.snapshot
	hash := p.hash
	fresh := snapshot != nil && time.Since(p.fetchedAt) < p.config.TTL
	p.mu.RUnlock()

	if fresh {
		return snapshot, hash, nil
	}

	if err := p.Refresh(ctx); err != nil {
		p.mu.RLock()
		snapshot = p.snapshot
		hash = p.hash
		p.mu.RUnlock()

		if snapshot != nil {
			p.logger.Warn("ruleset refresh failed, serving last good snapshot", "error", err)
			return snapshot, hash, nil
		}
		return nil, "", err
	}

	p.mu.RLock()
	snapshot = p.snapshot
	hash = p.hash
	p.mu.RUnlock()
	return snapshot, hash, nil
}

// Refresh loads a fresh ruleset and swaps it in atomically. After a failed
// load it backs off exponentially (1s doubling, capped at the TTL): requests
// arriving inside the backoff window are served the last good snapshot
// without touching the backing store again.
func (p *Provider) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	p.mu.RLock()
	fresh := p.snapshot != nil && time.Since(p.fetchedAt) < p.config.TTL
	retryAt := p.retryAt
	lastErr := p.lastErr
	p.mu.RUnlock()
	if fresh {
		return nil
	}
	if lastErr != nil && time.Now().Before(retryAt) {
		return lastErr
	}

	loadCtx, cancel := context.WithTimeout(ctx, p.config.LoadTimeout)
	defer cancel()

	rs, err := p.loader.LoadRuleset(loadCtx)
	if err != nil {
		p.mu.Lock()
		if p.backoff <= 0 {
			p.backoff = time.Second
		}
		p.retryAt = time.Now().Add(p.backoff)
		p.backoff *= 2
		if p.backoff > p.config.TTL {
			p.backoff = p.config.TTL
		}
		p.lastErr = err
		p.mu.Unlock()
		return err
	}

	hash := VersionHash(rs)

	p.mu.Lock()
	p.snapshot = rs
	p.hash = hash
	p.fetchedAt = time.Now()
	p.retryAt = time.Time{}
	p.backoff = 0
	p.lastErr = nil
	p.mu.Unlock()

	p.logger.Info("policy ruleset loaded",
		"version", hash,
		"jurisdictions", len(rs.Jurisdictions),
		"deny_list", len(rs.DenyList),
	)
	return nil
}

// Invalidate expires the current snapshot so the next Get refreshes. The
// snapshot itself is kept as the fallback, and any refresh backoff is
// cleared: an explicit invalidation means the document changed, so the next
// load is worth attempting right away.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	p.fetchedAt = time.Time{}
	p.retryAt = time.Time{}
	p.backoff = 0
	p.lastErr = nil
	p.mu.Unlock()
}

// WatchFile invalidates the provider whenever the ruleset document at path
// changes, so edits take effect before the TTL elapses. It blocks until the
// context is cancelled; intended to run in its own goroutine.
func (p *Provider) WatchFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", dir, err)
	}

	target := filepath.Clean(path)

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
			p.logger.Debug("ruleset document changed", "path", path)
			p.Invalidate()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("ruleset watcher error", "error", err)
		}
	}
}
