package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Hash computes the content hash of a ruleset: hex-encoded SHA-256 over the
// canonical JSON encoding. encoding/json sorts map keys, so the hash is
// stable across load order.
func Hash(rs *Ruleset) string {
	data, err := json.Marshal(rs)
	if err != nil {
		// Ruleset contains only marshalable types; treat failure as an
		// empty document rather than propagating.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VersionHash returns the declared version, or the content hash when the
// document declares none. This is the value stamped into provenance records.
func VersionHash(rs *Ruleset) string {
	if rs.Version != "" {
		return rs.Version
	}
	return Hash(rs)
}
