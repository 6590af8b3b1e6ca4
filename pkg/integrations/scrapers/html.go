package scrapers

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/yair/merchpulse/pkg/normalize"
)

// mustSelector compiles a comma separated selector group. Groups are package
// level literals, so a parse error is a programming mistake.
func mustSelector(group string) cascadia.SelectorGroup {
	sel, err := cascadia.ParseGroup(group)
	if err != nil {
		panic(fmt.Sprintf("invalid selector %q: %v", group, err))
	}
	return sel
}

// selectAll returns the descendants of root matching sel, in document order.
func selectAll(root *html.Node, sel cascadia.SelectorGroup) []*html.Node {
	return cascadia.QueryAll(root, sel)
}

// selectFirst returns the first descendant of root matching sel, or nil.
func selectFirst(root *html.Node, sel cascadia.SelectorGroup) *html.Node {
	return cascadia.Query(root, sel)
}

// outermost drops nodes nested inside another node of the same set, so a card
// matched by two selectors at different depths is parsed once.
func outermost(nodes []*html.Node) []*html.Node {
	set := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}

	var out []*html.Node
	for _, n := range nodes {
		nested := false
		for p := n.Parent; p != nil; p = p.Parent {
			if set[p] {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, n)
		}
	}
	return out
}

func getAttribute(node *html.Node, attrName string) string {
	for _, attr := range node.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}
	return ""
}

func getTextContent(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}

	var text strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "script" || c.Data == "style") {
			continue
		}
		text.WriteString(getTextContent(c))
	}

	return text.String()
}

// textOf returns the whitespace-collapsed text of the first match, or "".
func textOf(root *html.Node, sel cascadia.SelectorGroup) string {
	n := selectFirst(root, sel)
	if n == nil {
		return ""
	}
	return normalize.CleanText(getTextContent(n))
}

// splitVenueCity splits "Venue Name - City" on the last separator.
func splitVenueCity(text string) (venue, city string) {
	idx := strings.LastIndex(text, " - ")
	if idx < 0 {
		return strings.TrimSpace(text), ""
	}
	return strings.TrimSpace(text[:idx]), strings.TrimSpace(text[idx+3:])
}
