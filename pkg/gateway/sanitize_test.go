package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSanitizeHeaders(t *testing.T) {
	t.Run("valid headers pass through", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/v1/compliance/evaluate", nil)
		r.Header.Set(SubjectHeader, "subject:alice")
		r.Header.Set(OrgHeader, "org:acme")
		r.Header.Set(JurisdictionHeader, "GB")

		ident, perr := SanitizeHeaders(r, "US")
		if perr != nil {
			t.Fatalf("SanitizeHeaders: %v", perr)
		}
		if ident.Subject != "subject:alice" || ident.Org != "org:acme" {
			t.Errorf("identity = %+v", ident)
		}
		if ident.Jurisdiction != "GB" {
			t.Errorf("jurisdiction = %s, want GB", ident.Jurisdiction)
		}
	})

	t.Run("jurisdiction case preserved", func(t *testing.T) {
		// Downstream jurisdiction lookups are case-sensitive; the sanitizer
		// must not normalize.
		r := httptest.NewRequest("POST", "/", nil)
		r.Header.Set(JurisdictionHeader, "gb")

		ident, perr := SanitizeHeaders(r, "US")
		if perr != nil {
			t.Fatalf("SanitizeHeaders: %v", perr)
		}
		if ident.Jurisdiction != "gb" {
			t.Errorf("jurisdiction = %s, want gb as sent", ident.Jurisdiction)
		}
	})

	t.Run("missing headers fall back to defaults", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)

		ident, perr := SanitizeHeaders(r, "US")
		if perr != nil {
			t.Fatalf("SanitizeHeaders: %v", perr)
		}
		if ident.Subject != "subject:unknown" || ident.Org != "org:unknown" || ident.Jurisdiction != "US" {
			t.Errorf("identity = %+v, want unknown defaults", ident)
		}
	})

	t.Run("script injection rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.Header.Set(SubjectHeader, "user:123<script>")

		_, perr := SanitizeHeaders(r, "US")
		if perr == nil {
			t.Fatal("subject with markup should be rejected")
		}
		if perr.Code != CodeInvalidHeaders {
			t.Errorf("code = %s, want %s", perr.Code, CodeInvalidHeaders)
		}
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.Header.Set(SubjectHeader, "  subject:alice  ")

		ident, perr := SanitizeHeaders(r, "US")
		if perr != nil {
			t.Fatalf("SanitizeHeaders: %v", perr)
		}
		if ident.Subject != "subject:alice" {
			t.Errorf("subject = %q", ident.Subject)
		}
	})

	t.Run("invalid org rejected", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/", nil)
		r.Header.Set(OrgHeader, "org acme")

		_, perr := SanitizeHeaders(r, "US")
		if perr == nil || perr.Code != CodeInvalidHeaders {
			t.Errorf("perr = %v, want invalid headers", perr)
		}
	})
}

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "subject:alice", "subject:alice"},
		{"trims whitespace", "  x  ", "x"},
		{"strips control characters", "sub\x00ject\x1f:a\x7flice", "subject:alice"},
		{"truncates", strings.Repeat("a", 300), strings.Repeat("a", 256)},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeValue(tt.in); got != tt.want {
				t.Errorf("sanitizeValue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
