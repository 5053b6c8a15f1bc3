// Package ratelimit implements the fixed-window request counter the decision
// gateway applies per (org, subject) key.
//
// Counters live in process memory only and reset on the window cadence; they
// are never persisted, so a crash forgets them. That trade favors
// availability over perfect accounting.
package ratelimit
