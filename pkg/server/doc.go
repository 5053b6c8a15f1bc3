// Package server provides the HTTP API for the decision engine: the gated
// compliance evaluation endpoint, the eligibility simulator, the
// recent-evaluations inspection endpoint, health, and metrics.
package server
