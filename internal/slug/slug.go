// Package slug turns free-text catalog names into their canonical display form and
// into the URL-safe keys used as identities.
package slug

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"pocabinder/internal/apperr"
)

var (
	// Matches every run of characters that may not appear in a slug.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches a well-formed slug.
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Normalize title-cases every whitespace-separated token of raw and joins the
// tokens with single spaces.
//
//	"bts"           -> "Bts"
//	"  jung   KOOK" -> "Jung Kook"
//	""              -> ""
//
// Acronyms are not special-cased: "BTS" also becomes "Bts".
func Normalize(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}

	// Casers carry state, so each call gets its own.
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	for i, word := range fields {
		_, size := utf8.DecodeRuneInString(word)
		fields[i] = upper.String(word[:size]) + lower.String(word[size:])
	}
	return strings.Join(fields, " ")
}

// Slugify derives the identity key of a name.
//
//	"José María"    -> "jose-maria"
//	"Proof (Standard)" -> "proof-standard"
//	"!!!"           -> ""
//
// The result is empty when raw holds no letter or digit that survives
// diacritic removal; callers must reject such names.
func Slugify(raw string) string {
	s := cases.Lower(language.Und).String(Normalize(raw))

	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}

	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is a well-formed, non-empty slug.
func Valid(s string) bool {
	return slugPattern.MatchString(s)
}

// Derive returns the display form and slug of a required name, or a
// validation error naming field when raw is blank or slugifies to nothing.
func Derive(field, raw string) (display, key string, err error) {
	if strings.TrimSpace(raw) == "" {
		return "", "", apperr.ValidationWithDetails("validation failed", map[string]string{field: "is required"})
	}
	display = Normalize(raw)
	key = Slugify(display)
	if key == "" {
		return "", "", apperr.ValidationWithDetails("validation failed", map[string]string{field: "must contain a letter or digit"})
	}
	return display, key, nil
}
