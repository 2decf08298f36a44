package jptext

import (
	"math"
	"testing"
)

func TestFold(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"full-width digits", "１０５", "105"},
		{"full-width latin", "ＡＢＣハイツ", "ABCハイツ"},
		{"mixed punctuation", "１０．５万円", "10.5万円"},
		{"already half-width", "105,000", "105,000"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fold(tt.input); got != tt.want {
				t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompactSpace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ascii spaces", "メゾン 青葉 101", "メゾン青葉101"},
		{"ideographic space", "メゾン　青葉", "メゾン青葉"},
		{"tabs and newlines", "a\tb\nc", "abc"},
		{"no spaces", "グランメゾン", "グランメゾン"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompactSpace(tt.input); got != tt.want {
				t.Errorf("CompactSpace(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestConvertKanjiNumerals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"positional", "青葉二丁目", "青葉2丁目"},
		{"positional tens", "二十三番地", "23番地"},
		{"digit sequence", "一〇三号室", "103号室"},
		{"bare ten", "十丁目", "10丁目"},
		{"hundreds", "三百二十一", "321"},
		{"no numerals", "中央町", "中央町"},
		{"mixed with arabic", "中央1丁目二番", "中央1丁目2番"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConvertKanjiNumerals(tt.input); got != tt.want {
				t.Errorf("ConvertKanjiNumerals(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSimilarityIdentical(t *testing.T) {
	if got := Similarity("グランメゾン青葉", "グランメゾン青葉"); got != 1.0 {
		t.Errorf("Similarity(identical) = %v, want 1.0", got)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	if got := Similarity("コーポ桜", "ハイム月島"); got != 0 {
		t.Errorf("Similarity(disjoint) = %v, want 0", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", ""); got != 0 {
		t.Errorf("Similarity(empty, empty) = %v, want 0", got)
	}
	if got := Similarity("メゾン", ""); got != 0 {
		t.Errorf("Similarity(a, empty) = %v, want 0", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"グランメゾン青葉", "グランメゾン青葉II"},
		{"サンハイツ中央", "ハイツ中央"},
		{"レジデンス東山202", "レジデンス東山"},
		{"ab", "ba"},
	}
	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %v but reversed = %v", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarityPartial(t *testing.T) {
	got := Similarity("グランメゾン青葉", "グランメゾン葵")
	if got <= 0 || got >= 1 {
		t.Errorf("Similarity(partial) = %v, want between 0 and 1", got)
	}
}

func TestSimilarityKnownValue(t *testing.T) {
	// "night" vs "nacht": bigrams {ni,ig,gh,ht} and {na,ac,ch,ht} share 1 of 8.
	got := Similarity("night", "nacht")
	want := 2.0 * 1 / 8
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Similarity(night, nacht) = %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("グラン　メゾン１０１"); got != "グランメゾン101" {
		t.Errorf("Normalize = %q, want %q", got, "グランメゾン101")
	}
}
