package dom

import (
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"web-agent/internal/entity"
)

// Extract returns one item per element matching selector in the
// rendered markup. Selectors starting with "/" or "(" are treated as
// XPath, anything else as CSS. Elements with empty trimmed text are
// dropped. Selector and parse failures are non-fatal and yield zero
// items; the loop treats that as a corrective signal, not an error.
func Extract(markup, selector, pageURL string) []entity.ScrapedItem {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	nodes := match(doc, selector)
	base, _ := url.Parse(pageURL)

	items := make([]entity.ScrapedItem, 0, len(nodes))

	for _, node := range nodes {
		text := strings.TrimSpace(htmlquery.InnerText(node))
		if text == "" {
			continue
		}

		items = append(items, entity.ScrapedItem{
			Text: text,
			Link: resolveLink(node, base),
		})
	}

	return items
}

func match(doc *html.Node, selector string) []*html.Node {
	if isXPath(selector) {
		nodes, err := htmlquery.QueryAll(doc, selector)
		if err != nil {
			return nil
		}

		return nodes
	}

	sel, err := cascadia.ParseGroup(selector)
	if err != nil {
		return nil
	}

	return cascadia.QueryAll(doc, sel)
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

// resolveLink finds the href associated with a matched element: the
// element itself if it is a link, else its nearest enclosing link, else
// its first descendant link, else nil. Relative hrefs are resolved
// against the page URL.
func resolveLink(n *html.Node, base *url.URL) *string {
	if href, ok := anchorHref(n); ok {
		return absolute(href, base)
	}

	for parent := n.Parent; parent != nil; parent = parent.Parent {
		if href, ok := anchorHref(parent); ok {
			return absolute(href, base)
		}
	}

	if href, ok := firstDescendantAnchor(n); ok {
		return absolute(href, base)
	}

	return nil
}

func firstDescendantAnchor(n *html.Node) (string, bool) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if href, ok := anchorHref(child); ok {
			return href, true
		}

		if href, ok := firstDescendantAnchor(child); ok {
			return href, true
		}
	}

	return "", false
}

func anchorHref(n *html.Node) (string, bool) {
	if n.Type != html.ElementNode || !strings.EqualFold(n.Data, "a") {
		return "", false
	}

	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, "href") {
			return attr.Val, true
		}
	}

	return "", false
}

func absolute(href string, base *url.URL) *string {
	if base != nil {
		if ref, err := url.Parse(href); err == nil {
			href = base.ResolveReference(ref).String()
		}
	}

	return &href
}
