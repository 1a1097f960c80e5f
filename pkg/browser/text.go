package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// VisibleText returns the human-visible text of an HTML document, one text run
// per line. Script, style and similar non-rendered content is dropped.
func VisibleText(rawHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var builder strings.Builder
	collectText(doc, &builder)
	return strings.TrimSpace(builder.String()), nil
}

// collectText walks the tree writing trimmed text nodes.
func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && isHiddenElement(strings.ToLower(n.Data)) {
		return
	}

	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			builder.WriteString(text)
			builder.WriteString("\n")
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, builder)
	}
}

// isHiddenElement returns true for elements whose content is never rendered as text
func isHiddenElement(tagName string) bool {
	switch tagName {
	case "script", "style", "noscript", "template", "head", "svg":
		return true
	}
	return false
}
