// Package audit defines the append-only audit sink the decision engine writes
// to, together with in-memory and SQLite-backed implementations and a
// retention pruner.
//
// Audit writes are always best effort: callers log failures locally and never
// retry synchronously, and no audit failure may surface to a request.
package audit
