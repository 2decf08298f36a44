package portal

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazuki802/bukkaku/internal/jptext"
)

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

func byTag(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == name
	}
}

// byClass matches elements carrying a class token; tag may be empty to match
// any element.
func byClass(tag, class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if tag != "" && n.Data != tag {
			return false
		}
		return hasClass(n, class)
	}
}

func byAttr(tag, key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return false
		}
		if tag != "" && n.Data != tag {
			return false
		}
		return attrValue(n, key) == value
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, token := range strings.Fields(attrValue(n, "class")) {
		if token == class {
			return true
		}
	}
	return false
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// nodeText returns the visible text of a subtree with runs of whitespace
// collapsed to single spaces. Script and style content is skipped.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strings.Join(strings.Fields(text), " "))
			}
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// nextElementSibling returns the first following sibling whose tag matches.
func nextElementSibling(n *html.Node, tag string) *html.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode && sib.Data == tag {
			return sib
		}
	}
	return nil
}

// labelValueTable collects definition pairs from th/td and dt/dd markup.
// Keys are whitespace-compacted so nested label markup still matches the
// plain Japanese labels; th/td pairs win over dt/dd duplicates.
func labelValueTable(doc *html.Node) map[string]string {
	table := make(map[string]string)
	for _, th := range findAll(doc, byTag("th")) {
		td := nextElementSibling(th, "td")
		if td == nil {
			continue
		}
		label := jptext.CompactSpace(nodeText(th))
		if label != "" {
			table[label] = nodeText(td)
		}
	}
	for _, dt := range findAll(doc, byTag("dt")) {
		dd := nextElementSibling(dt, "dd")
		if dd == nil {
			continue
		}
		label := jptext.CompactSpace(nodeText(dt))
		if label == "" {
			continue
		}
		if _, ok := table[label]; !ok {
			table[label] = nodeText(dd)
		}
	}
	return table
}

func firstValue(table map[string]string, keys ...string) string {
	for _, key := range keys {
		if value, ok := table[key]; ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
