package eligibility

import (
	"fmt"
	"strconv"
	"strings"
)

// Outcome is the eligibility verdict.
type Outcome string

const (
	OutcomeAllow  Outcome = "allow"
	OutcomeDeny   Outcome = "deny"
	OutcomeReview Outcome = "review"
)

// Accreditation is a policy's accreditation requirement.
type Accreditation struct {
	Required bool `yaml:"required" json:"required"`
}

// Requirements is the investor-requirements slice of a policy document.
type Requirements struct {
	// Sanctions is the required sanctions posture. "none" means any
	// sanctions hit denies.
	Sanctions string `yaml:"sanctions,omitempty" json:"sanctions,omitempty"`

	// Accreditation declares whether investors must be accredited.
	Accreditation *Accreditation `yaml:"accreditation,omitempty" json:"accreditation,omitempty"`
}

// TransferControls is the transfer-controls slice of a policy document.
type TransferControls struct {
	// AllowedJurisdictions is the jurisdiction allowlist. A nil list means
	// no jurisdiction restriction.
	AllowedJurisdictions []string `yaml:"allowed_jurisdictions,omitempty" json:"allowed_jurisdictions,omitempty"`
}

// Limits is the value-limits slice of a policy document.
type Limits struct {
	// PerInvestorUSDTotal caps the total USD value per investor. Zero means
	// no cap.
	PerInvestorUSDTotal float64 `yaml:"per_investor_usd_total,omitempty" json:"per_investor_usd_total,omitempty"`
}

// Policy is a single eligibility policy document. It is a simpler shape than
// the gateway's ruleset: one instrument's requirements, not a whole access
// policy.
type Policy struct {
	Requirements     *Requirements     `yaml:"requirements,omitempty" json:"requirements,omitempty"`
	TransferControls *TransferControls `yaml:"transfer_controls,omitempty" json:"transfer_controls,omitempty"`
	Limits           *Limits           `yaml:"limits,omitempty" json:"limits,omitempty"`
}

// Input is the prospective transfer under evaluation.
type Input struct {
	Jurisdiction string  `yaml:"jurisdiction,omitempty" json:"jurisdiction,omitempty"`
	Accredited   bool    `yaml:"accredited,omitempty" json:"accredited,omitempty"`
	SanctionsHit bool    `yaml:"sanctionsHit,omitempty" json:"sanctionsHit,omitempty"`
	AmountUSD    float64 `yaml:"amountUsd,omitempty" json:"amountUsd,omitempty"`
}

// Result is the eligibility verdict with human-readable reasons.
type Result struct {
	Outcome Outcome  `json:"outcome"`
	Reasons []string `json:"reasons"`
}

// String renders the verdict for text output.
func (r Result) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s", r.Outcome)
	for _, reason := range r.Reasons {
		fmt.Fprintf(&b, "\n  - %s", reason)
	}
	return b.String()
}

// Evaluate checks the input against the policy document. Checks run in a
// fixed order and the first failure wins: sanctions, accreditation,
// jurisdiction, value limits. When everything passes, the outcome is allow
// with a single "all checks passed" reason.
//
// Evaluate mutates neither argument and holds no state; it is safe to call
// concurrently.
func Evaluate(policy *Policy, input Input) Result {
	if policy == nil {
		policy = &Policy{}
	}

	if policy.Requirements != nil {
		if policy.Requirements.Sanctions == "none" && input.SanctionsHit {
			return Result{
				Outcome: OutcomeDeny,
				Reasons: []string{"Sanctions hit present but policy requires none"},
			}
		}

		if policy.Requirements.Accreditation != nil &&
			policy.Requirements.Accreditation.Required && !input.Accredited {
			return Result{
				Outcome: OutcomeDeny,
				Reasons: []string{"Accreditation required but not present"},
			}
		}
	}

	if policy.TransferControls != nil && policy.TransferControls.AllowedJurisdictions != nil &&
		input.Jurisdiction != "" && !containsString(policy.TransferControls.AllowedJurisdictions, input.Jurisdiction) {
		return Result{
			Outcome: OutcomeDeny,
			Reasons: []string{fmt.Sprintf("Jurisdiction %s not allowed", input.Jurisdiction)},
		}
	}

	if policy.Limits != nil && policy.Limits.PerInvestorUSDTotal > 0 &&
		input.AmountUSD > policy.Limits.PerInvestorUSDTotal {
		return Result{
			Outcome: OutcomeDeny,
			Reasons: []string{fmt.Sprintf("Amount %s exceeds per-investor total limit %s",
				formatAmount(input.AmountUSD), formatAmount(policy.Limits.PerInvestorUSDTotal))},
		}
	}

	return Result{
		Outcome: OutcomeAllow,
		Reasons: []string{"All checks passed"},
	}
}

// formatAmount renders a USD amount in plain decimal notation; %v would slip
// into scientific notation for large caps.
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
