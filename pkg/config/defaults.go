package config

import "time"

// DefaultConfig returns a fully defaulted configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Booleans whose
// default is true are handled in Load, where unmarshal state distinguishes
// "absent" from "false".
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Policy.RulesetPath == "" {
		cfg.Policy.RulesetPath = "policy/ruleset.yaml"
	}
	if cfg.Policy.CacheTTL == 0 {
		cfg.Policy.CacheTTL = 60 * time.Second
	}
	if cfg.Policy.LoadTimeout == 0 {
		cfg.Policy.LoadTimeout = 5 * time.Second
	}
	if cfg.Policy.DefaultJurisdiction == "" {
		cfg.Policy.DefaultJurisdiction = "US"
	}

	if cfg.Rules.Path == "" {
		cfg.Rules.Path = "policy/rules.yaml"
	}
	if cfg.Rules.RefreshInterval == 0 {
		cfg.Rules.RefreshInterval = 60 * time.Second
	}
	if cfg.Rules.LoadTimeout == 0 {
		cfg.Rules.LoadTimeout = 5 * time.Second
	}
	if cfg.Rules.RingCapacity == 0 {
		cfg.Rules.RingCapacity = 1000
	}
	if cfg.Rules.AuditBuffer == 0 {
		cfg.Rules.AuditBuffer = 1000
	}

	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = 1000
	}
	if cfg.Cache.DefaultTTL == 0 {
		cfg.Cache.DefaultTTL = 5 * time.Second
	}
	if cfg.Cache.SweepInterval == 0 {
		cfg.Cache.SweepInterval = 60 * time.Second
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = "data/audit.db"
	}
	if cfg.Audit.SQLite.Driver == "" {
		cfg.Audit.SQLite.Driver = "sqlite"
	}
	if cfg.Audit.SQLite.BusyTimeout == 0 {
		cfg.Audit.SQLite.BusyTimeout = 5 * time.Second
	}
	if cfg.Audit.Retention.RetentionDays == 0 {
		cfg.Audit.Retention.RetentionDays = 90
	}
	if cfg.Audit.Retention.PruneSchedule == "" {
		cfg.Audit.Retention.PruneSchedule = "0 3 * * *"
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "veria"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "arbiter"
	}
}
