package web

import (
	"strings"

	"golang.org/x/net/html"
)

// DOM helpers over x/net/html parse trees.

func attrValue(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

// findByClass returns the first element carrying the class.
func findByClass(root *html.Node, class string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = n
			return false
		}
		return true
	})
	return found
}

// findAllByClass returns every element carrying the class, in document
// order, without descending into matches.
func findAllByClass(root *html.Node, class string) []*html.Node {
	var found []*html.Node
	var descend func(n *html.Node)
	descend = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, class) {
			found = append(found, n)
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			descend(child)
		}
	}
	descend(root)
	return found
}

// findByTag returns the first element with the given tag name.
func findByTag(root *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return false
		}
		return true
	})
	return found
}

// findFirstAnchor returns the first <a> under the node.
func findFirstAnchor(root *html.Node) *html.Node {
	return findByTag(root, "a")
}

// findNextLink locates the pagination link: an <a> with rel="next" or
// the "next" class.
func findNextLink(root *html.Node) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if attrValue(n, "rel") == "next" || hasClass(n, "next") {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// nodeText returns the concatenated text content of a node, collapsed
// to single spaces.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		return true
	})
	return strings.Join(strings.Fields(sb.String()), " ")
}

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true,
	"h2": true, "h3": true, "h4": true, "blockquote": true, "pre": true,
}

// blockText extracts readable text, inserting newlines at block
// element boundaries so paragraph structure survives for chunking.
func blockText(n *html.Node) string {
	var sb strings.Builder
	var descend func(n *html.Node)
	descend = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			descend(child)
		}
		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n\n")
		}
	}
	descend(n)
	return strings.TrimSpace(sb.String())
}
