package models

import (
	"regexp"
	"strings"
	"unicode"
)

var slugPattern = regexp.MustCompile(`^([a-z0-9]+(-[a-z0-9]+)*)?$`)

// Slug derives a URL path segment from a page title. The title is lowercased,
// characters other than ASCII letters, digits, whitespace and '-' are dropped,
// and every run of whitespace or hyphens becomes a single '-'. Leading and
// trailing hyphens are trimmed.
//
//	Slug("Client's Q1 Goals!!") == "clients-q1-goals"
func Slug(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}

// IsSlug reports whether s is a well-formed slug: lowercase ASCII letters and
// digits separated by single hyphens, or empty.
func IsSlug(s string) bool {
	return slugPattern.MatchString(s)
}
