package features

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// invisibleRunes covers characters commonly planted in URLs to disguise them:
// soft hyphen, zero-width space/joiners, and the BOM.
var invisibleRunes = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x00AD, Hi: 0x00AD, Stride: 1},
		{Lo: 0x200B, Hi: 0x200D, Stride: 1},
		{Lo: 0xFEFF, Hi: 0xFEFF, Stride: 1},
	},
}

var schemePrefix = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Normalize prepares a raw submission for parsing:
// invisible characters are removed, surrounding whitespace is trimmed,
// and "http://" is prepended when no scheme is present.
// The empty string is returned unchanged.
func Normalize(raw string) string {
	cleaned, _, err := transform.String(runes.Remove(runes.In(invisibleRunes)), raw)
	if err != nil {
		cleaned = raw
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return ""
	}
	if !schemePrefix.MatchString(cleaned) {
		cleaned = "http://" + cleaned
	}
	return cleaned
}
