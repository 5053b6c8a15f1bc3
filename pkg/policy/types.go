package policy

import (
	"strings"
)

// Jurisdiction is the per-jurisdiction gate. Only an explicit Allow admits
// requests from that jurisdiction.
type Jurisdiction struct {
	Allow bool `yaml:"allow" json:"allow"`
}

// Quota is a per-subject request budget applied over a fixed one-second
// window. Burst is the hard ceiling within a window.
type Quota struct {
	RPS   int `yaml:"rps" json:"rps"`
	Burst int `yaml:"burst" json:"burst"`
}

// Redaction declares response fields to redact downstream. The gateway only
// annotates requests with these; it never rewrites responses itself.
type Redaction struct {
	Fields []string `yaml:"fields" json:"fields"`
	Rules  []string `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Ruleset is the coarse access-policy document the decision gateway enforces.
type Ruleset struct {
	// Version identifies the policy revision. When empty, the content hash
	// stands in as the version.
	Version string `yaml:"version" json:"version"`

	// Jurisdictions maps jurisdiction codes to their gates. Absent codes
	// are denied.
	Jurisdictions map[string]Jurisdiction `yaml:"jurisdictions" json:"jurisdictions"`

	// Quotas maps quota keys to budgets. The key "default" applies when no
	// org-specific "org:<name>" key exists.
	Quotas map[string]Quota `yaml:"quotas,omitempty" json:"quotas,omitempty"`

	// Redaction declares response redaction for downstream filtering.
	Redaction *Redaction `yaml:"redaction,omitempty" json:"redaction,omitempty"`

	// DenyList freezes subjects or orgs outright.
	DenyList []string `yaml:"deny_list,omitempty" json:"deny_list,omitempty"`

	// Obligations carries free-form obligations attached to allowed requests.
	Obligations []string `yaml:"obligations,omitempty" json:"obligations,omitempty"`
}

// defaultQuota applies when the ruleset declares no quota at all.
var defaultQuota = Quota{RPS: 5, Burst: 10}

// QuotaFor resolves the quota for an org: an org-specific entry overrides the
// ruleset default, which overrides the built-in default.
func (rs *Ruleset) QuotaFor(org string) Quota {
	if q, ok := rs.Quotas["org:"+org]; ok {
		return q
	}
	if q, ok := rs.Quotas["default"]; ok {
		return q
	}
	return defaultQuota
}

// Denied reports whether the identifier appears on the deny-list. Matching is
// exact after whitespace trimming, so normalized headers compare identically
// to their raw forms.
func (rs *Ruleset) Denied(id string) bool {
	id = strings.TrimSpace(id)
	for _, entry := range rs.DenyList {
		if strings.TrimSpace(entry) == id {
			return true
		}
	}
	return false
}

// JurisdictionAllowed reports whether the jurisdiction is explicitly allowed.
func (rs *Ruleset) JurisdictionAllowed(code string) bool {
	j, ok := rs.Jurisdictions[code]
	return ok && j.Allow
}
