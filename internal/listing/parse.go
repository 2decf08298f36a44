package listing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hazuki802/bukkaku/internal/jptext"
)

var (
	manYenPattern = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)万`)
	plainYen      = regexp.MustCompile(`([0-9][0-9,]*)`)
	areaPattern   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)`)
	buildAge      = regexp.MustCompile(`築([0-9]+)年`)
	westernYear   = regexp.MustCompile(`(19[0-9]{2}|20[0-9]{2})`)
)

// ParseRent normalizes a rent expression to yen per month. Accepts the
// 万円 form ("10.5万円" -> 105000), plain yen with grouping ("105,000円"),
// and already-normalized integers, with full-width digits throughout.
func ParseRent(text string) (int64, bool) {
	s := jptext.Normalize(text)
	if s == "" {
		return 0, false
	}
	if m := manYenPattern.FindStringSubmatch(s); m != nil {
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(value * 10000)), true
	}
	if m := plainYen.FindStringSubmatch(s); m != nil {
		digits := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, false
		}
		return value, true
	}
	return 0, false
}

// ParseArea extracts floor area in square meters from expressions like
// "40.5m²" or "40.5㎡".
func ParseArea(text string) (float64, bool) {
	s := jptext.Normalize(text)
	m := areaPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ParseBuildYear resolves a construction-year expression to a western year.
// Building age ("築10年") counts back from now; "新築" means the current
// year; otherwise the first plausible western year wins ("1998/04",
// "1998年4月"). Kanji numerals are tolerated.
func ParseBuildYear(text string, now time.Time) (int, bool) {
	s := jptext.ConvertKanjiNumerals(jptext.Normalize(text))
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, "新築") {
		return now.Year(), true
	}
	if m := buildAge.FindStringSubmatch(s); m != nil {
		age, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return now.Year() - age, true
	}
	if m := westernYear.FindStringSubmatch(s); m != nil {
		year, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return year, true
	}
	return 0, false
}
