package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Outcome is a cached decision outcome.
type Outcome string

const (
	OutcomeAllow Outcome = "ALLOW"
	OutcomeDeny  Outcome = "DENY"
)

// Key is the identity tuple a decision is cached under.
type Key struct {
	Subject      string
	Org          string
	Jurisdiction string
	Endpoint     string
}

// hash derives the deterministic cache key: SHA-256 over the tuple fields in
// a fixed order with separators, so distinct tuples never collide by
// concatenation.
func (k Key) hash() string {
	h := sha256.New()
	for _, part := range []string{k.Subject, k.Org, k.Jurisdiction, k.Endpoint} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Decision is a cached decision with its expiry bookkeeping.
type Decision struct {
	// Outcome is the cached outcome.
	Outcome Outcome

	// Reason identifies the denying gate ("" on allow).
	Reason string

	// Timestamp is when the decision was cached.
	Timestamp time.Time

	// TTL is how long the entry stays valid.
	TTL time.Duration
}

// expired reports whether the entry is past its TTL at now.
func (d *Decision) expired(now time.Time) bool {
	return now.After(d.Timestamp.Add(d.TTL))
}

// Config contains configuration for the decision cache.
type Config struct {
	// MaxSize bounds the number of entries; FIFO eviction applies at the
	// bound. Default: 1000
	MaxSize int

	// DefaultTTL applies when Set is called with a zero TTL.
	// Default: 5 seconds
	DefaultTTL time.Duration

	// SweepInterval is the cadence of the background expiry sweep.
	// Default: 60 seconds
	SweepInterval time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxSize:       1000,
		DefaultTTL:    5 * time.Second,
		SweepInterval: 60 * time.Second,
	}
}

// DecisionCache memoizes recent gateway decisions. Safe for concurrent use.
type DecisionCache struct {
	config *Config

	mu      sync.Mutex
	entries map[string]*Decision

	// order tracks insertion order for FIFO eviction.
	order []string

	stopCh    chan struct{}
	closeOnce sync.Once
}

// New creates a decision cache and starts its background sweep.
func New(config *Config) *DecisionCache {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxSize <= 0 {
		config.MaxSize = 1000
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 5 * time.Second
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 60 * time.Second
	}

	c := &DecisionCache{
		config:  config,
		entries: make(map[string]*Decision),
		stopCh:  make(chan struct{}),
	}

	go c.sweepLoop()

	return c
}

// Get returns the cached decision for the key, or nil on a miss. An expired
// entry is deleted and reported as a miss.
func (c *DecisionCache) Get(key Key) *Decision {
	k := key.hash()
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[k]
	if !ok {
		return nil
	}
	if entry.expired(now) {
		c.remove(k)
		return nil
	}
	return entry
}

// Set caches a decision under the key. A zero ttl applies the default. At
// capacity the oldest entry is evicted first (FIFO).
func (c *DecisionCache) Set(key Key, outcome Outcome, reason string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}
	k := key.hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[k]; !exists {
		if len(c.entries) >= c.config.MaxSize {
			c.evictOldest()
		}
		c.order = append(c.order, k)
	}

	c.entries[k] = &Decision{
		Outcome:   outcome,
		Reason:    reason,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
}

// Len returns the number of cached entries, expired included until swept.
func (c *DecisionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *DecisionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Decision)
	c.order = nil
}

// Close stops the background sweep.
func (c *DecisionCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCh)
	})
}

// Sweep deletes all expired entries immediately. The background loop calls
// this on the configured cadence; tests may call it directly.
func (c *DecisionCache) Sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for k, entry := range c.entries {
		if entry.expired(now) {
			c.remove(k)
		}
	}
}

func (c *DecisionCache) sweepLoop() {
	ticker := time.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopCh:
			return
		}
	}
}

// evictOldest removes the oldest live entry. Callers hold c.mu.
func (c *DecisionCache) evictOldest() {
	for len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[oldest]; ok {
			delete(c.entries, oldest)
			return
		}
		// Entry was already removed by expiry; keep scanning.
	}
}

// remove deletes the entry and its order slot. Callers hold c.mu.
func (c *DecisionCache) remove(k string) {
	delete(c.entries, k)
	for i, id := range c.order {
		if id == k {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
