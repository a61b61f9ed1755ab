// Package dom holds the two pure page-markup transforms: reducing a
// rendered page to the decision-relevant subset the planner sees, and
// extracting scraped items from it.
package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Subtrees rooted at these tags carry no interactive targets and burn
// planner context, so they are dropped whole.
var prunedTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"svg":      {},
	"path":     {},
	"head":     {},
	"meta":     {},
	"noscript": {},
	"footer":   {},
}

// Attributes useful for identifying and addressing elements. Everything
// else is discarded.
var allowedAttrs = map[string]struct{}{
	"id":          {},
	"name":        {},
	"class":       {},
	"href":        {},
	"type":        {},
	"placeholder": {},
	"aria-label":  {},
	"role":        {},
}

var voidTags = map[string]struct{}{
	"area": {}, "base": {}, "br": {}, "col": {}, "embed": {}, "hr": {},
	"img": {}, "input": {}, "link": {}, "source": {}, "track": {}, "wbr": {},
}

// Simplify reduces raw page markup to an indented outline of the
// elements and attributes useful for picking interaction targets.
// Malformed input is handled tolerantly and never fails the caller.
func Simplify(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// html.Parse only fails on reader errors, which a string
		// reader cannot produce; fall back to the raw input anyway.
		return markup
	}

	prune(doc)

	var sb strings.Builder
	render(&sb, doc, 0)

	return sb.String()
}

func prune(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling

		if child.Type == html.ElementNode {
			if _, drop := prunedTags[strings.ToLower(child.Data)]; drop {
				n.RemoveChild(child)
				child = next

				continue
			}

			filterAttrs(child)
		}

		prune(child)
		child = next
	}
}

func filterAttrs(n *html.Node) {
	kept := n.Attr[:0]

	for _, attr := range n.Attr {
		if _, ok := allowedAttrs[strings.ToLower(attr.Key)]; ok {
			kept = append(kept, attr)
		}
	}

	n.Attr = kept
}

func render(sb *strings.Builder, n *html.Node, depth int) {
	switch n.Type {
	case html.DocumentNode:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			render(sb, child, depth)
		}
	case html.ElementNode:
		renderElement(sb, n, depth)
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if text != "" {
			writeIndent(sb, depth)
			sb.WriteString(text)
			sb.WriteByte('\n')
		}
	}
}

func renderElement(sb *strings.Builder, n *html.Node, depth int) {
	tag := strings.ToLower(n.Data)

	writeIndent(sb, depth)
	sb.WriteByte('<')
	sb.WriteString(tag)

	for _, attr := range n.Attr {
		sb.WriteByte(' ')
		sb.WriteString(attr.Key)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(attr.Val))
		sb.WriteByte('"')
	}

	sb.WriteString(">\n")

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		render(sb, child, depth+1)
	}

	if _, void := voidTags[tag]; !void {
		writeIndent(sb, depth)
		sb.WriteString("</")
		sb.WriteString(tag)
		sb.WriteString(">\n")
	}
}

func writeIndent(sb *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		sb.WriteByte(' ')
	}
}
