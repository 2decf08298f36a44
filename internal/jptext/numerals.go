package jptext

import (
	"strconv"
	"strings"
)

var kanjiDigits = map[rune]int{
	'〇': 0, '零': 0,
	'一': 1, '二': 2, '三': 3, '四': 4, '五': 5,
	'六': 6, '七': 7, '八': 8, '九': 9,
}

var kanjiUnits = map[rune]int{
	'十': 10,
	'百': 100,
	'千': 1000,
}

// ConvertKanjiNumerals rewrites every maximal run of kanji numerals in s to
// arabic digits, leaving all other characters untouched. Positional forms
// ("二十三" → 23) and digit-sequence forms ("一〇三" → 103) both occur in
// scraped addresses.
func ConvertKanjiNumerals(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); {
		if !isKanjiNumeral(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isKanjiNumeral(runes[j]) {
			j++
		}
		b.WriteString(strconv.Itoa(parseKanjiRun(runes[i:j])))
		i = j
	}
	return b.String()
}

func isKanjiNumeral(r rune) bool {
	if _, ok := kanjiDigits[r]; ok {
		return true
	}
	_, ok := kanjiUnits[r]
	return ok
}

// parseKanjiRun evaluates one run of kanji numerals. Runs containing unit
// characters are read positionally; plain digit runs are read as a decimal
// digit sequence.
func parseKanjiRun(runes []rune) int {
	hasUnit := false
	for _, r := range runes {
		if _, ok := kanjiUnits[r]; ok {
			hasUnit = true
			break
		}
	}
	if !hasUnit {
		value := 0
		for _, r := range runes {
			value = value*10 + kanjiDigits[r]
		}
		return value
	}

	total := 0
	current := 0
	for _, r := range runes {
		if d, ok := kanjiDigits[r]; ok {
			current = current*10 + d
			continue
		}
		unit := kanjiUnits[r]
		if current == 0 {
			current = 1
		}
		total += current * unit
		current = 0
	}
	return total + current
}
