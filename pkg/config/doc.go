// Package config defines the YAML configuration for the arbiter decision
// engine: server, policy ruleset source, rule source, decision cache, audit
// storage, and telemetry sections, with defaults, validation, and ARBITER_*
// environment overrides.
package config
