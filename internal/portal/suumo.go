package portal

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazuki802/bukkaku/internal/listing"
)

// SUUMO serves two page layouts. Unit pages (jnc_) put a station summary
// like "玉川学園前駅 2階建 築32年" in the h1 and the building name elsewhere,
// while building pages (bc_) append a provider credit and sometimes a room
// number to the h1. Both shapes are handled here.
var (
	suumoStationHeading = regexp.MustCompile(`駅\s*[0-9]+階建\s*築[0-9]+年$`)
	suumoProviderCredit = regexp.MustCompile(`\s+[-‐－―–—]\s+.*(?:が提供する|提供).*$`)
	suumoRoomSuffix     = regexp.MustCompile(`\s*([0-9]+F?)号室$`)

	addressPrefecture = regexp.MustCompile(`[都道府県]`)
	addressCityBlock  = regexp.MustCompile(`[区市町村].*[0-9０-９]`)
)

func parseSuumo(doc *html.Node) *listing.Attributes {
	attrs := &listing.Attributes{}

	if h1 := findFirst(doc, byClass("h1", "section_h1-header-title")); h1 != nil {
		text := nodeText(h1)
		if text != "" && !suumoStationHeading.MatchString(text) {
			name := suumoProviderCredit.ReplaceAllString(text, "")
			if room := suumoRoomSuffix.FindStringSubmatch(name); room != nil {
				attrs.Unit = room[1]
				name = suumoRoomSuffix.ReplaceAllString(name, "")
			}
			attrs.Name = strings.TrimSpace(name)
		}
	}

	table := labelValueTable(doc)
	mergeSuumoPropertyData(doc, table)

	attrs.Address = firstValue(table, "所在地", "住所")
	if attrs.Address == "" {
		attrs.Address = suumoAddressFallback(doc)
	}

	for _, class := range []string{"property_view_note-emphasis", "property_view_main-emphasis"} {
		if el := findFirst(doc, byClass("", class)); el != nil {
			if text := nodeText(el); text != "" {
				attrs.RentText = text
				break
			}
		}
	}
	if attrs.RentText == "" {
		attrs.RentText = firstValue(table, "賃料", "家賃")
	}

	attrs.AreaText = firstValue(table, "専有面積", "面積")
	attrs.Layout = firstValue(table, "間取り")
	attrs.BuiltText = firstValue(table, "築年月", "築年数", "完成年月")
	return attrs
}

// mergeSuumoPropertyData folds the .property_data title/body pairs used on
// unit pages into the label table without overwriting table rows.
func mergeSuumoPropertyData(doc *html.Node, table map[string]string) {
	for _, block := range findAll(doc, byClass("", "property_data")) {
		title := findFirst(block, byClass("", "property_data-title"))
		body := findFirst(block, byClass("", "property_data-body"))
		if title == nil || body == nil {
			continue
		}
		label := strings.TrimSpace(nodeText(title))
		if label == "" {
			continue
		}
		if _, ok := table[label]; !ok {
			table[label] = nodeText(body)
		}
	}
}

// suumoAddressFallback scans the detail text blocks for something that looks
// like an address, skipping station access lines.
func suumoAddressFallback(doc *html.Node) string {
	for _, el := range findAll(doc, byClass("", "property_view_detail-text")) {
		text := strings.TrimSpace(nodeText(el))
		if text == "" {
			continue
		}
		if strings.Contains(text, "駅") || strings.Contains(text, "線/") || strings.Contains(text, "歩") {
			continue
		}
		if addressPrefecture.MatchString(text) || addressCityBlock.MatchString(text) {
			return text
		}
	}
	return ""
}
