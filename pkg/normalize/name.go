// Package normalize holds the text folding and parsing helpers shared by the
// source adapters, the entity resolver and the scoring tables.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	parenthetical   = regexp.MustCompile(`\([^)]*\)`)
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
)

// stripNonASCII decomposes accented characters and drops everything outside ASCII.
func stripNonASCII(s string) string {
	s = norm.NFKD.String(s)
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// ArtistKey is the dedup key for artists and product artist tags.
// "AC/DC", "ac dc" and "AC-DC (Live)" all map to "acdc".
func ArtistKey(name string) string {
	s := strings.ToLower(stripNonASCII(name))
	s = parenthetical.ReplaceAllString(s, "")
	s = nonAlphanumeric.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Fold lowercases, strips accents and collapses whitespace, keeping word
// boundaries. Used for table lookups such as "São Paulo" -> "sao paulo".
func Fold(s string) string {
	s = strings.ToLower(stripNonASCII(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanText trims and collapses runs of whitespace into single spaces.
func CleanText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
