package config

import "time"

// Config is the root configuration for the arbiter decision engine.
type Config struct {
	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Policy contains the coarse access-policy ruleset source settings.
	Policy PolicyConfig `yaml:"policy"`

	// Rules contains the fine-grained compliance rule source and engine
	// settings.
	Rules RulesConfig `yaml:"rules"`

	// Cache contains decision cache settings.
	Cache CacheConfig `yaml:"cache"`

	// Audit contains audit storage and retention settings.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging and metrics settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PolicyConfig contains configuration for the policy ruleset source.
type PolicyConfig struct {
	// RulesetPath is the ruleset document (YAML or JSON).
	// Default: "policy/ruleset.yaml"
	RulesetPath string `yaml:"ruleset_path"`

	// CacheTTL is how long a loaded ruleset stays fresh.
	// Default: 60s
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// LoadTimeout bounds a single ruleset load.
	// Default: 5s
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// Watch enables fsnotify invalidation on document changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// DefaultJurisdiction applies when a request declares none. This is a
	// policy choice, not a technical necessity.
	// Default: "US"
	DefaultJurisdiction string `yaml:"default_jurisdiction"`
}

// RulesConfig contains configuration for the compliance rule engine.
type RulesConfig struct {
	// Path is the rule document (YAML or JSON).
	// Default: "policy/rules.yaml"
	Path string `yaml:"path"`

	// RefreshInterval is the periodic reload cadence.
	// Default: 60s
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// LoadTimeout bounds a single rule load.
	// Default: 5s
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// Watch enables fsnotify reload on document changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// RingCapacity bounds the recent-evaluations ring buffer.
	// Default: 1000
	RingCapacity int `yaml:"ring_capacity"`

	// AuditBuffer is the async evaluation-audit channel size.
	// Default: 1000
	AuditBuffer int `yaml:"audit_buffer"`
}

// CacheConfig contains configuration for the decision cache.
type CacheConfig struct {
	// MaxSize bounds the entry count (FIFO eviction at the bound).
	// Default: 1000
	MaxSize int `yaml:"max_size"`

	// DefaultTTL applies to entries cached without an explicit TTL.
	// Default: 5s
	DefaultTTL time.Duration `yaml:"default_ttl"`

	// SweepInterval is the background expiry sweep cadence.
	// Default: 60s
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuditConfig contains configuration for audit storage.
type AuditConfig struct {
	// Backend selects the store: "memory" or "sqlite".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention configures the pruner.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite backend settings.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the SQL driver: "sqlite" (pure Go) or "sqlite3" (cgo).
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig contains audit retention settings.
type RetentionConfig struct {
	// RetentionDays is how many days of records to keep (0 = forever).
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps each audit table's row count (0 = unlimited).
	// Default: 0
	MaxRecords int `yaml:"max_records"`

	// PruneSchedule is a cron expression for scheduled pruning ("" = off).
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls metric collection and the /metrics endpoint.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric namespace.
	// Default: "veria"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem.
	// Default: "arbiter"
	Subsystem string `yaml:"subsystem"`
}
