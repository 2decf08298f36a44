package listing

import (
	"testing"
	"time"
)

func TestParseRent(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"10.5万円", 105000, true},
		{"105,000円", 105000, true},
		{"105000", 105000, true},
		{"8万円", 80000, true},
		{"１０．５万円", 105000, true},
		{"家賃 7.3万円", 73000, true},
		{"12万", 120000, true},
		{"98,000円/月", 98000, true},
		{"", 0, false},
		{"応相談", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseRent(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRent(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRentIdempotent(t *testing.T) {
	first, ok := ParseRent("10.5万円")
	if !ok {
		t.Fatal("first parse failed")
	}
	second, ok := ParseRent("105000")
	if !ok || second != first {
		t.Fatalf("reparse of normalized value = %d, want %d", second, first)
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"40.5m²", 40.5, true},
		{"40.5㎡", 40.5, true},
		{"４０．５㎡", 40.5, true},
		{"25m2", 25, true},
		{"専有面積 33.12㎡", 33.12, true},
		{"", 0, false},
		{"不明", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseArea(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseArea(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseBuildYear(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"築10年", 2016, true},
		{"1998/04", 1998, true},
		{"1998年4月", 1998, true},
		{"新築", 2026, true},
		{"築３年", 2023, true},
		{"築十年", 2016, true},
		{"2005年12月築", 2005, true},
		{"", 0, false},
		{"不詳", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseBuildYear(tt.input, now)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseBuildYear(%q) = %d, %v; want %d, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDeriveFillsNumericFields(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	attrs := &Attributes{
		Name:      "グランメゾン青葉",
		RentText:  "10.5万円",
		AreaText:  "40.5㎡",
		BuiltText: "築10年",
	}
	attrs.Derive(now)
	if attrs.Rent != 105000 {
		t.Fatalf("rent = %d", attrs.Rent)
	}
	if attrs.Area != 40.5 {
		t.Fatalf("area = %v", attrs.Area)
	}
	if attrs.BuildYear != 2016 {
		t.Fatalf("build year = %d", attrs.BuildYear)
	}

	// Already-populated numerics are left alone.
	attrs.RentText = "99万円"
	attrs.Derive(now)
	if attrs.Rent != 105000 {
		t.Fatalf("derive overwrote rent: %d", attrs.Rent)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	attrs := &Attributes{Name: "コーポ桜", Address: "世田谷区桜3-1-5", Rent: 83000, Area: 25.3, BuildYear: 2001}
	encoded, err := attrs.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Name != attrs.Name || decoded.Rent != attrs.Rent || decoded.Area != attrs.Area {
		t.Fatalf("round trip mismatch: %#v", decoded)
	}
	if _, err := Decode(""); err == nil {
		t.Fatal("empty payload should fail")
	}
}

func TestSummary(t *testing.T) {
	attrs := &Attributes{Name: "コーポ桜", Unit: "101", Address: "世田谷区桜3-1-5", Rent: 83000}
	got := attrs.Summary()
	want := "コーポ桜 101 / 世田谷区桜3-1-5 / 83000円"
	if got != want {
		t.Fatalf("Summary() = %q, want %q", got, want)
	}
	empty := &Attributes{}
	if empty.Summary() != "" {
		t.Fatalf("empty summary = %q", empty.Summary())
	}
}
