package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	if _, _, err := net.SplitHostPort(cfg.Server.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not a valid host:port: %w",
			cfg.Server.ListenAddress, err)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative")
	}

	if cfg.Policy.RulesetPath == "" {
		return fmt.Errorf("policy.ruleset_path is required")
	}
	if cfg.Policy.CacheTTL <= 0 {
		return fmt.Errorf("policy.cache_ttl must be positive")
	}
	if cfg.Policy.LoadTimeout <= 0 {
		return fmt.Errorf("policy.load_timeout must be positive")
	}
	if cfg.Policy.DefaultJurisdiction == "" {
		return fmt.Errorf("policy.default_jurisdiction is required")
	}

	if cfg.Rules.Path == "" {
		return fmt.Errorf("rules.path is required")
	}
	if cfg.Rules.RefreshInterval <= 0 {
		return fmt.Errorf("rules.refresh_interval must be positive")
	}
	if cfg.Rules.RingCapacity <= 0 {
		return fmt.Errorf("rules.ring_capacity must be positive")
	}

	if cfg.Cache.MaxSize <= 0 {
		return fmt.Errorf("cache.max_size must be positive")
	}
	if cfg.Cache.DefaultTTL <= 0 {
		return fmt.Errorf("cache.default_ttl must be positive")
	}

	switch cfg.Audit.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("audit.backend must be \"memory\" or \"sqlite\", got %q", cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" {
		switch cfg.Audit.SQLite.Driver {
		case "sqlite", "sqlite3":
		default:
			return fmt.Errorf("audit.sqlite.driver must be \"sqlite\" or \"sqlite3\", got %q",
				cfg.Audit.SQLite.Driver)
		}
		if cfg.Audit.SQLite.Path == "" {
			return fmt.Errorf("audit.sqlite.path is required")
		}
	}
	if cfg.Audit.Retention.RetentionDays < 0 {
		return fmt.Errorf("audit.retention.retention_days must not be negative")
	}
	if cfg.Audit.Retention.MaxRecords < 0 {
		return fmt.Errorf("audit.retention.max_records must not be negative")
	}

	switch strings.ToLower(cfg.Telemetry.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be debug, info, warn, or error, got %q",
			cfg.Telemetry.Logging.Level)
	}
	switch strings.ToLower(cfg.Telemetry.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text, got %q",
			cfg.Telemetry.Logging.Format)
	}

	return nil
}
