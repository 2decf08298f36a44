package portal

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/hazuki802/bukkaku/internal/listing"
)

func parseHomes(doc *html.Node) *listing.Attributes {
	attrs := &listing.Attributes{}
	attrs.Name = homesName(doc)

	table := labelValueTable(doc)

	attrs.Address = firstValue(table, "所在地", "住所")
	if attrs.Address == "" {
		if el := findFirst(doc, byAttr("", "itemprop", "address")); el != nil {
			attrs.Address = strings.TrimSpace(nodeText(el))
		}
	}

	attrs.RentText = firstValue(table, "賃料", "家賃")
	if attrs.RentText == "" {
		if el := findFirst(doc, byClass("", "priceLabel")); el != nil {
			attrs.RentText = strings.TrimSpace(nodeText(el))
		}
	}

	attrs.AreaText = firstValue(table, "専有面積", "面積")
	attrs.Layout = firstValue(table, "間取り")
	attrs.BuiltText = firstValue(table, "築年月", "築年数")
	return attrs
}

// homesName tries the heading variants LIFULL HOME'S uses across its page
// generations, most specific first.
func homesName(doc *html.Node) string {
	selectors := []func(*html.Node) bool{
		byClass("h1", "heading--b1"),
		byAttr("h1", "itemprop", "name"),
		byClass("", "bukkenName"),
		byTag("h1"),
	}
	for _, sel := range selectors {
		if el := findFirst(doc, sel); el != nil {
			if text := strings.TrimSpace(nodeText(el)); text != "" {
				return text
			}
		}
	}
	return ""
}
