package rules

import "testing"

func TestExtractField(t *testing.T) {
	score := 72.5
	age := 30
	ctx := &Context{
		Transaction: &Transaction{
			ID:       "tx-1",
			Amount:   15000,
			Currency: "USD",
			Type:     "wire_transfer",
			Metadata: map[string]any{
				"channel": "api",
				"device":  map[string]any{"trusted": true},
			},
		},
		User: &User{
			ID:           "user-1",
			KYCStatus:    "verified",
			AMLRiskScore: &score,
			Jurisdiction: "US",
			AccountAgeDays: &age,
		},
	}

	tests := []struct {
		path        string
		want        any
		wantPresent bool
	}{
		{"transaction.amount", 15000.0, true},
		{"transaction.currency", "USD", true},
		{"user.kyc_status", "verified", true},
		{"user.aml_risk_score", 72.5, true},
		{"user.account_age_days", 30, true},
		{"user.jurisdiction", "US", true},
		{"transaction.metadata.channel", "api", true},
		{"transaction.metadata.device.trusted", true, true},

		// Absent leaves and slices
		{"user.accreditation_status", nil, false},
		{"user.total_transaction_volume", nil, false},
		{"environment.source_ip", nil, false},
		{"transaction.metadata.missing", nil, false},
		{"transaction.nonexistent", nil, false},
		{"unknown.path", nil, false},
		{"", nil, false},

		// A leaf must terminate the path.
		{"transaction.amount.extra", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, present := extractField(tt.path, ctx)
			if present != tt.wantPresent {
				t.Fatalf("extractField(%q) present = %v, want %v", tt.path, present, tt.wantPresent)
			}
			if present && got != tt.want {
				t.Errorf("extractField(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractFieldNilContext(t *testing.T) {
	if _, present := extractField("user.id", nil); present {
		t.Error("nil context should yield absent")
	}

	// Absent slices never panic.
	ctx := &Context{}
	if _, present := extractField("transaction.amount", ctx); present {
		t.Error("absent transaction slice should yield absent")
	}
	if _, present := extractField("user.kyc_status", ctx); present {
		t.Error("absent user slice should yield absent")
	}
}

func TestExtractFieldEmptyOptionalString(t *testing.T) {
	ctx := &Context{User: &User{ID: "user-1"}}

	// Optional strings left empty read as absent, so eq against them fails
	// rather than matching the zero value.
	if _, present := extractField("user.kyc_status", ctx); present {
		t.Error("empty kyc_status should read as absent")
	}

	// Required identity fields keep zero-value semantics.
	if v, present := extractField("user.id", ctx); !present || v != "user-1" {
		t.Errorf("user.id = %v, %v", v, present)
	}
}
