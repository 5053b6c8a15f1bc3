package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and validates.
// Missing boolean fields default to true for Policy.Watch, Rules.Watch,
// SQLite WAL mode, and metrics: the pre-unmarshal seed keeps absent fields at
// their defaults while explicit `false` still wins.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := seedConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadWithEnvOverrides loads from file then applies ARBITER_* environment
// overrides, re-validating the result. Environment always wins over file.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// seedConfig pre-sets booleans whose default is true.
func seedConfig() *Config {
	cfg := &Config{}
	cfg.Policy.Watch = true
	cfg.Rules.Watch = true
	cfg.Audit.SQLite.WALMode = true
	cfg.Telemetry.Metrics.Enabled = true
	return cfg
}

// applyEnvOverrides applies ARBITER_SECTION_FIELD environment overrides.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ARBITER_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if d, ok := envDuration("ARBITER_SERVER_READ_TIMEOUT"); ok {
		cfg.Server.ReadTimeout = d
	}
	if d, ok := envDuration("ARBITER_SERVER_WRITE_TIMEOUT"); ok {
		cfg.Server.WriteTimeout = d
	}
	if d, ok := envDuration("ARBITER_SERVER_SHUTDOWN_TIMEOUT"); ok {
		cfg.Server.ShutdownTimeout = d
	}

	if val := os.Getenv("ARBITER_POLICY_RULESET_PATH"); val != "" {
		cfg.Policy.RulesetPath = val
	}
	if d, ok := envDuration("ARBITER_POLICY_CACHE_TTL"); ok {
		cfg.Policy.CacheTTL = d
	}
	if val := os.Getenv("ARBITER_POLICY_DEFAULT_JURISDICTION"); val != "" {
		cfg.Policy.DefaultJurisdiction = val
	}
	if b, ok := envBool("ARBITER_POLICY_WATCH"); ok {
		cfg.Policy.Watch = b
	}

	if val := os.Getenv("ARBITER_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	if d, ok := envDuration("ARBITER_RULES_REFRESH_INTERVAL"); ok {
		cfg.Rules.RefreshInterval = d
	}
	if b, ok := envBool("ARBITER_RULES_WATCH"); ok {
		cfg.Rules.Watch = b
	}

	if val := os.Getenv("ARBITER_CACHE_MAX_SIZE"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxSize = n
		}
	}
	if d, ok := envDuration("ARBITER_CACHE_DEFAULT_TTL"); ok {
		cfg.Cache.DefaultTTL = d
	}

	if val := os.Getenv("ARBITER_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("ARBITER_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLite.Path = val
	}
	if val := os.Getenv("ARBITER_AUDIT_SQLITE_DRIVER"); val != "" {
		cfg.Audit.SQLite.Driver = val
	}

	if val := os.Getenv("ARBITER_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("ARBITER_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("ARBITER_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
}

func envDuration(name string) (time.Duration, bool) {
	val := os.Getenv(name)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}
