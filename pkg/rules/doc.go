// Package rules implements the fine-grained compliance rule engine.
//
// Rules are data, not code: each rule is a prioritized sequence of field-level
// conditions plus a sequence of actions, loaded from an external source and
// swapped wholesale on reload. The engine evaluates a rule set against a
// request context, chooses an action per rule, and short-circuits the whole
// pass on the first hard rejection (deny-wins semantics).
//
// Every evaluation result is mirrored to a bounded in-memory ring buffer for
// real-time inspection and appended asynchronously to a durable audit sink.
// Audit failures are logged and never surface to the caller.
//
// The engine fails closed: if no rule set has ever been loaded successfully,
// Evaluate refuses to run rather than silently allowing everything.
package rules
