// Package slug derives URL path segments from product names.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	valid    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	// Letters that carry no combining mark and so survive NFD unchanged.
	folds = strings.NewReplacer(
		"ı", "i", "ß", "ss", "ø", "o", "æ", "ae", "œ", "oe", "đ", "d", "ł", "l", "þ", "th",
	)
)

// Make lowercases name, strips diacritics and joins the remaining
// alphanumeric runs with single hyphens.
//
//	Make("Kadın Giyim")        => "kadin-giyim"
//	Make("Crème Brûlée  Set!") => "creme-brulee-set"
func Make(name string) string {
	s := folds.Replace(strings.ToLower(strings.TrimSpace(name)))

	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err == nil {
		s = stripped
	}

	return strings.Trim(nonAlnum.ReplaceAllString(s, "-"), "-")
}

// Valid reports whether s is already a well-formed slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}
