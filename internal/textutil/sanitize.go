// Package textutil normalises names coming from remote listings so they can
// be used as path segments.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// segmentReplacer replaces path-unsafe characters with safe alternatives.
var segmentReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeSegment turns name into a single path segment. The result is NFC
// normalised, free of control characters and separators, and never empty,
// "." or "..".
func SanitizeSegment(name string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
	clean, _, err := transform.String(t, name)
	if err != nil {
		clean = name
	}
	clean = segmentReplacer.Replace(clean)
	clean = strings.Trim(clean, " .")
	if clean == "" {
		return "_"
	}
	return clean
}
