// Package gateway implements the policy decision gateway: HTTP middleware
// that sanitizes identity headers, consults the decision cache, enforces the
// deny-list, jurisdiction, and rate-limit gates from the active policy
// ruleset, and stamps every terminal outcome with an X-Veria-Provenance
// header and an audit record.
//
// The gate order is fixed: header sanitation, cache lookup, deny-list,
// jurisdiction, rate limit, redaction annotation, allow. Only a cached
// denial short-circuits the chain; a cached allow still runs every gate so
// the rate limiter counts each request. A request denied by
// any gate never reaches the later gates or the wrapped handler. When the
// policy ruleset cannot be loaded the gateway fails closed with a 500.
package gateway
