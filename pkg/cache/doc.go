// Package cache implements the bounded, TTL-based decision cache keyed by a
// normalized identity tuple (subject, org, jurisdiction, endpoint).
//
// The cache is an explicitly owned, injectable object with constructor-provided
// capacity and TTL, so tests can run multiple isolated instances. A background
// sweep deletes expired entries independent of access patterns, bounding
// memory under bursty, never-repeated keys.
package cache
