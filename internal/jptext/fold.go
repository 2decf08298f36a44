package jptext

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Fold maps characters to their canonical width: full-width ASCII variants
// (１２３, ＡＢＣ, ．) become half-width, half-width katakana becomes
// full-width. Scraped portal and inventory text mixes both freely.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	return width.Fold.String(s)
}

// CompactSpace removes every space character, including the ideographic
// space U+3000 common in scraped Japanese text.
func CompactSpace(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize applies Fold then CompactSpace. This is the baseline form both
// sides of every text comparison pass through first.
func Normalize(s string) string {
	return CompactSpace(Fold(s))
}
