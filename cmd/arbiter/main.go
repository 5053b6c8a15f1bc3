// Arbiter is a policy and compliance decision engine for regulated asset
// platforms.
//
// It enforces a coarse access policy (deny-lists, jurisdiction gates, rate
// quotas) in front of its API, evaluates fine-grained compliance rules
// against transaction contexts, and keeps a durable audit trail of every
// decision.
//
// Usage:
//
//	# Start the server with the default configuration
//	arbiter run
//
//	# Start with a custom configuration file
//	arbiter run --config /path/to/config.yaml
//
//	# Show version information
//	arbiter version
//
//	# Validate configuration and rule documents
//	arbiter validate --config config.yaml
//
//	# Run a one-shot eligibility check
//	arbiter simulate --policy policy.yaml --input input.yaml
package main

func main() {
	Execute()
}
