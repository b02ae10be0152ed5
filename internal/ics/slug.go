package ics

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxSlugLen  = 200
	defaultSlug = "category"
)

// Slugify lowercases s and strips accents, drops every character that is
// not a letter, digit, '_', '-' or space, turns runs of spaces and hyphens
// into one hyphen and trims '-' and '_' from both ends.
func Slugify(s string) string {
	// transform.Chain is stateful, so it is built per call.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}

	slug := strings.Trim(b.String(), "-_")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(truncate(slug, maxSlugLen), "-_")
	}
	if slug == "" {
		return defaultSlug
	}
	return slug
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	cut := 0
	for i := range s {
		if i > n {
			break
		}
		cut = i
	}
	return s[:cut]
}
