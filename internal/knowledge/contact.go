package knowledge

import (
	"regexp"
	"strings"

	"github.com/hazuki802/bukkaku/internal/jptext"
)

var (
	phonePattern = regexp.MustCompile(`0[0-9]{1,4}[-(][0-9]{1,4}[-)][0-9]{3,4}`)
	telLabel     = regexp.MustCompile(`(?i)[\s(]*(?:TEL|電話)?[.:：]*\s*$`)
)

// SplitContact separates the management company contact string scraped from
// the exchange ("株式会社コスモ不動産 TEL:045-123-4567") into company name
// and phone number. Either part may come back empty; the caller treats an
// empty company as unroutable.
func SplitContact(contact string) (company, phone string) {
	s := strings.TrimSpace(jptext.Fold(contact))
	if s == "" {
		return "", ""
	}

	loc := phonePattern.FindStringIndex(s)
	if loc == nil {
		return strings.TrimSpace(telLabel.ReplaceAllString(s, "")), ""
	}

	phone = s[loc[0]:loc[1]]
	phone = strings.NewReplacer("(", "-", ")", "-").Replace(phone)
	phone = strings.Trim(phone, "-")

	company = strings.TrimSpace(s[:loc[0]])
	company = telLabel.ReplaceAllString(company, "")
	return strings.TrimSpace(company), phone
}
