// Package eligibility implements the stateless transfer-eligibility
// evaluator: a pure function over a single policy document and an input,
// used by the simulate endpoint and CLI to answer "would this transfer be
// allowed" without touching engine state.
package eligibility
