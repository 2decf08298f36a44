// Package listing defines the typed attributes extracted from a portal page
// and the numeric normalization rules shared by parsers and the matcher.
package listing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Attributes is the structured form of one advertised rental unit. Raw text
// fields keep what the page said; numeric fields carry the normalized values
// the matcher works with.
type Attributes struct {
	Name      string  `json:"name"`
	Unit      string  `json:"unit,omitempty"`
	Address   string  `json:"address"`
	RentText  string  `json:"rent_text,omitempty"`
	Rent      int64   `json:"rent"`
	AreaText  string  `json:"area_text,omitempty"`
	Area      float64 `json:"area"`
	Layout    string  `json:"layout,omitempty"`
	BuiltText string  `json:"built_text,omitempty"`
	BuildYear int     `json:"build_year"`
}

// Derive fills the numeric fields from the raw text fields. Existing numeric
// values are kept; unparseable text leaves the zero value.
func (a *Attributes) Derive(now time.Time) {
	if a.Rent == 0 {
		if rent, ok := ParseRent(a.RentText); ok {
			a.Rent = rent
		}
	}
	if a.Area == 0 {
		if area, ok := ParseArea(a.AreaText); ok {
			a.Area = area
		}
	}
	if a.BuildYear == 0 {
		if year, ok := ParseBuildYear(a.BuiltText, now); ok {
			a.BuildYear = year
		}
	}
}

// Encode serializes attributes for persistence on a verification case.
func (a *Attributes) Encode() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal listing attributes: %w", err)
	}
	return string(data), nil
}

// Decode restores attributes persisted by Encode.
func Decode(data string) (*Attributes, error) {
	if strings.TrimSpace(data) == "" {
		return nil, fmt.Errorf("empty listing attributes")
	}
	attrs := &Attributes{}
	if err := json.Unmarshal([]byte(data), attrs); err != nil {
		return nil, fmt.Errorf("unmarshal listing attributes: %w", err)
	}
	return attrs, nil
}

// Summary renders a short human-readable description for notifications.
func (a *Attributes) Summary() string {
	parts := make([]string, 0, 3)
	name := strings.TrimSpace(a.Name)
	if name != "" {
		if unit := strings.TrimSpace(a.Unit); unit != "" {
			name += " " + unit
		}
		parts = append(parts, name)
	}
	if addr := strings.TrimSpace(a.Address); addr != "" {
		parts = append(parts, addr)
	}
	if a.Rent > 0 {
		parts = append(parts, fmt.Sprintf("%d円", a.Rent))
	}
	return strings.Join(parts, " / ")
}
