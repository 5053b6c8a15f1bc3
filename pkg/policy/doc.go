// Package policy defines the coarse access-policy document (the ruleset)
// governing jurisdictions, quotas, redaction, and deny-lists, together with a
// caching provider that refreshes the document on a TTL cadence and falls
// back to the last good snapshot when the backing source fails.
//
// The ruleset is distinct from the fine-grained compliance rules in package
// rules: it is the document the decision gateway consults on every request.
package policy
