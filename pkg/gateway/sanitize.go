package gateway

import (
	"net/http"
	"regexp"
	"strings"
)

// Identity headers the gateway reads. Values are attested upstream (by the
// API edge); the gateway still sanitizes them before trusting them.
const (
	SubjectHeader      = "x-veria-subject"
	OrgHeader          = "x-veria-org"
	JurisdictionHeader = "x-veria-jurisdiction"
)

// Fallback identities applied when a header is absent after sanitation.
const (
	unknownSubject = "subject:unknown"
	unknownOrg     = "org:unknown"
)

// maxHeaderValueLen caps a sanitized header value.
const maxHeaderValueLen = 256

// identPattern admits identifier characters only; anything else in a
// subject or org value rejects the request outright.
var identPattern = regexp.MustCompile(`^[A-Za-z0-9:_-]+$`)

// Identity is the sanitized who-is-asking triple every gate keys on.
type Identity struct {
	Subject      string
	Org          string
	Jurisdiction string
}

// sanitizeValue trims whitespace, strips control characters, and truncates
// the value to maxHeaderValueLen.
func sanitizeValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, v)
	if len(v) > maxHeaderValueLen {
		v = v[:maxHeaderValueLen]
	}
	return v
}

// SanitizeHeaders extracts and sanitizes the identity headers. Missing
// subject and org fall back to the unknown identities; a missing jurisdiction
// falls back to defaultJurisdiction. Values keep their case: the jurisdiction
// table downstream matches case-sensitively. A present subject or org that
// still fails the identifier pattern after sanitation is a client error.
func SanitizeHeaders(r *http.Request, defaultJurisdiction string) (Identity, *PolicyError) {
	subject := sanitizeValue(r.Header.Get(SubjectHeader))
	org := sanitizeValue(r.Header.Get(OrgHeader))
	jurisdiction := sanitizeValue(r.Header.Get(JurisdictionHeader))

	if subject == "" {
		subject = unknownSubject
	}
	if org == "" {
		org = unknownOrg
	}
	if jurisdiction == "" {
		jurisdiction = defaultJurisdiction
	}

	if !identPattern.MatchString(subject) {
		return Identity{}, &PolicyError{
			Code:    CodeInvalidHeaders,
			Message: "invalid subject header",
			Details: map[string]string{"header": SubjectHeader},
		}
	}
	if !identPattern.MatchString(org) {
		return Identity{}, &PolicyError{
			Code:    CodeInvalidHeaders,
			Message: "invalid org header",
			Details: map[string]string{"header": OrgHeader},
		}
	}
	if !identPattern.MatchString(jurisdiction) {
		return Identity{}, &PolicyError{
			Code:    CodeInvalidHeaders,
			Message: "invalid jurisdiction header",
			Details: map[string]string{"header": JurisdictionHeader},
		}
	}

	return Identity{Subject: subject, Org: org, Jurisdiction: jurisdiction}, nil
}
