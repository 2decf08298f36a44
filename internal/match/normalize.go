package match

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/hazuki802/bukkaku/internal/jptext"
)

var (
	unitSuffix   = regexp.MustCompile(`[0-9]+(?:F?号室|号|階|F)$`)
	readingGloss = regexp.MustCompile(`\([ぁ-んァ-ヶー・]+\)$`)

	prefecturePrefix = regexp.MustCompile(`^(?:東京都|北海道|京都府|大阪府|\p{Han}{2,3}県)`)
)

// NormalizeName reduces a building name to its comparable core. Width
// variants are folded, whitespace removed, and trailing unit numbers and
// reading glosses stripped, so "グランドメゾン青葉台　２０３号室" and
// "ｸﾞﾗﾝﾄﾞﾒｿﾞﾝ青葉台(ｸﾞﾗﾝﾄﾞﾒｿﾞﾝｱｵﾊﾞﾀﾞｲ)" both compare as
// "グランドメゾン青葉台".
func NormalizeName(name string) string {
	s := jptext.Normalize(name)
	for {
		next := unitSuffix.ReplaceAllString(s, "")
		next = readingGloss.ReplaceAllString(next, "")
		if next == s {
			return s
		}
		s = next
	}
}

// NormalizeDistrict reduces an address to "locality + first block number",
// the coarse spatial key used for matching. The prefecture prefix is
// stripped, kanji numerals converted, and everything after the first numeral
// token dropped; the full street number is too noisy across sources to
// compare directly.
func NormalizeDistrict(address string) string {
	s := jptext.ConvertKanjiNumerals(jptext.Normalize(address))
	s = prefecturePrefix.ReplaceAllString(s, "")

	runes := []rune(s)
	start := -1
	for i, r := range runes {
		if unicode.IsDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		// No block number at all; the locality run is the whole key.
		return s
	}
	end := start
	for end < len(runes) && unicode.IsDigit(runes[end]) {
		end++
	}
	return string(runes[:end])
}

// districtLocality returns the district key without its block number, used
// as a substring filter against raw stored addresses.
func districtLocality(district string) string {
	return strings.TrimRight(district, "0123456789")
}

// runePrefix returns the first n runes of s.
func runePrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
