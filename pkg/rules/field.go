package rules

import (
	"strings"
)

// extractField resolves a dot-path field against the evaluation context.
// It returns the value and whether the field was present. Missing intermediate
// objects or a missing leaf yield (nil, false); extraction never panics.
//
// The traversal is a small recursive descent over the known context shape with
// an escape hatch into the free-form metadata maps.
func extractField(path string, ctx *Context) (any, bool) {
	if ctx == nil || path == "" {
		return nil, false
	}

	parts := strings.Split(path, ".")

	switch parts[0] {
	case "transaction":
		return extractTransactionField(parts[1:], ctx.Transaction)
	case "user":
		return extractUserField(parts[1:], ctx.User)
	case "environment":
		return extractEnvironmentField(parts[1:], ctx.Environment)
	default:
		return nil, false
	}
}

func extractTransactionField(parts []string, tx *Transaction) (any, bool) {
	if tx == nil || len(parts) == 0 {
		return nil, false
	}

	switch parts[0] {
	case "id":
		return leaf(parts, tx.ID)
	case "amount":
		return leaf(parts, tx.Amount)
	case "currency":
		return leaf(parts, tx.Currency)
	case "type":
		return leaf(parts, tx.Type)
	case "from_account":
		return leafString(parts, tx.FromAccount)
	case "to_account":
		return leafString(parts, tx.ToAccount)
	case "metadata":
		return extractMapField(parts[1:], tx.Metadata)
	default:
		return nil, false
	}
}

func extractUserField(parts []string, u *User) (any, bool) {
	if u == nil || len(parts) == 0 {
		return nil, false
	}

	switch parts[0] {
	case "id":
		return leaf(parts, u.ID)
	case "kyc_status":
		return leafString(parts, u.KYCStatus)
	case "aml_risk_score":
		if len(parts) != 1 || u.AMLRiskScore == nil {
			return nil, false
		}
		return *u.AMLRiskScore, true
	case "jurisdiction":
		return leafString(parts, u.Jurisdiction)
	case "accreditation_status":
		return leafString(parts, u.AccreditationStatus)
	case "account_age_days":
		if len(parts) != 1 || u.AccountAgeDays == nil {
			return nil, false
		}
		return *u.AccountAgeDays, true
	case "total_transaction_volume":
		if len(parts) != 1 || u.TotalVolume == nil {
			return nil, false
		}
		return *u.TotalVolume, true
	case "metadata":
		return extractMapField(parts[1:], u.Metadata)
	default:
		return nil, false
	}
}

func extractEnvironmentField(parts []string, env *Environment) (any, bool) {
	if env == nil || len(parts) == 0 {
		return nil, false
	}

	switch parts[0] {
	case "timestamp":
		return leafString(parts, env.Timestamp)
	case "source_ip":
		return leafString(parts, env.SourceIP)
	case "user_agent":
		return leafString(parts, env.UserAgent)
	case "session_id":
		return leafString(parts, env.SessionID)
	default:
		return nil, false
	}
}

// extractMapField walks the remaining path parts through nested free-form maps.
func extractMapField(parts []string, m map[string]any) (any, bool) {
	if m == nil || len(parts) == 0 {
		return nil, false
	}

	var current any = m
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// leaf returns the value when the path terminates here, absent otherwise.
func leaf(parts []string, v any) (any, bool) {
	if len(parts) != 1 {
		return nil, false
	}
	return v, true
}

// leafString is leaf for optional string fields: an empty string means the
// field was never set and is treated as absent.
func leafString(parts []string, v string) (any, bool) {
	if len(parts) != 1 || v == "" {
		return nil, false
	}
	return v, true
}
