package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const validRuleDocument = `
rules:
  - id: high-value-wire
    name: High value wire transfer
    type: transaction
    priority: 100
    enabled: true
    conditions:
      - field: transaction.amount
        operator: gt
        value: 10000
      - field: transaction.type
        operator: eq
        value: wire_transfer
    actions:
      - type: flag
      - type: manual_review
  - id: sanctions-screen
    name: Sanctions screening
    type: sanctions
    priority: 200
    enabled: true
    conditions:
      - field: user.jurisdiction
        operator: nin
        value: [KP, IR, SY]
    actions:
      - type: approve
      - type: reject
`

func writeRuleFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write rule file: %v", err)
	}
	return path
}

func TestFileSourceLoadRules(t *testing.T) {
	path := writeRuleFile(t, validRuleDocument)
	source := NewFileSource(DefaultFileSourceConfig(path), discardLogger())

	ruleSet, err := source.LoadRules(context.Background())
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(ruleSet) != 2 {
		t.Fatalf("loaded %d rules, want 2", len(ruleSet))
	}
	if ruleSet[0].ID != "high-value-wire" {
		t.Errorf("rules[0].ID = %s", ruleSet[0].ID)
	}
	if ruleSet[1].Conditions[0].Operator != OperatorNotIn {
		t.Errorf("rules[1] operator = %s, want nin", ruleSet[1].Conditions[0].Operator)
	}
}

func TestFileSourceLoadJSON(t *testing.T) {
	// YAML is a superset of JSON, so JSON documents load unchanged.
	path := writeRuleFile(t, `{"rules": [{"id": "r1", "name": "R1", "type": "kyc", "priority": 1, "enabled": true}]}`)
	source := NewFileSource(DefaultFileSourceConfig(path), discardLogger())

	ruleSet, err := source.LoadRules(context.Background())
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if len(ruleSet) != 1 || ruleSet[0].ID != "r1" {
		t.Errorf("ruleSet = %+v", ruleSet)
	}
}

func TestFileSourceLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		source := NewFileSource(DefaultFileSourceConfig(filepath.Join(t.TempDir(), "missing.yaml")), discardLogger())
		_, err := source.LoadRules(context.Background())
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			t.Fatalf("err = %v, want LoadError", err)
		}
	})

	t.Run("oversized file", func(t *testing.T) {
		path := writeRuleFile(t, validRuleDocument)
		config := DefaultFileSourceConfig(path)
		config.MaxFileSize = 10
		source := NewFileSource(config, discardLogger())
		if _, err := source.LoadRules(context.Background()); err == nil {
			t.Fatal("oversized document should fail")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeRuleFile(t, "rules: [unclosed")
		source := NewFileSource(DefaultFileSourceConfig(path), discardLogger())
		if _, err := source.LoadRules(context.Background()); err == nil {
			t.Fatal("malformed document should fail")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		path := writeRuleFile(t, validRuleDocument)
		source := NewFileSource(DefaultFileSourceConfig(path), discardLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := source.LoadRules(ctx); err == nil {
			t.Fatal("cancelled context should fail")
		}
	})
}

func TestValidateRules(t *testing.T) {
	valid := Rule{
		ID: "r1", Name: "R1", Type: RuleTypeKYC, Priority: 1, Enabled: true,
		Conditions: []Condition{{Field: "user.kyc_status", Operator: OperatorEqual, Value: "verified"}},
		Actions:    []Action{{Type: ActionApprove}},
	}

	t.Run("valid rule set", func(t *testing.T) {
		if err := ValidateRules([]Rule{valid}); err != nil {
			t.Errorf("ValidateRules: %v", err)
		}
	})

	t.Run("duplicate id", func(t *testing.T) {
		if err := ValidateRules([]Rule{valid, valid}); err == nil {
			t.Error("duplicate ids should fail")
		}
	})

	t.Run("missing id", func(t *testing.T) {
		r := valid
		r.ID = ""
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("missing id should fail")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		r := valid
		r.Type = "velocity"
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("unknown type should fail")
		}
	})

	t.Run("unknown operator", func(t *testing.T) {
		r := valid
		r.Conditions = []Condition{{Field: "user.id", Operator: "between", Value: 1}}
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("unknown operator should fail")
		}
	})

	t.Run("membership operator requires list", func(t *testing.T) {
		r := valid
		r.Conditions = []Condition{{Field: "user.jurisdiction", Operator: OperatorIn, Value: "US"}}
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("scalar value for in should fail")
		}
	})

	t.Run("unknown action type", func(t *testing.T) {
		r := valid
		r.Actions = []Action{{Type: "escalate"}}
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("unknown action type should fail")
		}
	})

	t.Run("bad logic tag", func(t *testing.T) {
		r := valid
		r.Conditions = []Condition{{Field: "user.id", Operator: OperatorEqual, Value: "x", Logic: "XOR"}}
		if err := ValidateRules([]Rule{r}); err == nil {
			t.Error("unknown logic tag should fail")
		}
	})
}
