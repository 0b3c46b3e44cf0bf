package markdown

import "strings"

// Link is an outgoing link found in a document.
type Link struct {
	URL      string
	Text     string
	Position *Position
}

// FindPreorder walks the tree depth first, visiting a node before its
// children, and returns the first value match accepts.
func FindPreorder[T any](n *Node, match func(*Node) (T, bool)) (T, bool) {
	if v, ok := match(n); ok {
		return v, true
	}
	for _, c := range n.Children {
		if v, ok := FindPreorder(c, match); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FindPostorder is FindPreorder with children visited before their parent.
func FindPostorder[T any](n *Node, match func(*Node) (T, bool)) (T, bool) {
	for _, c := range n.Children {
		if v, ok := FindPostorder(c, match); ok {
			return v, true
		}
	}
	if v, ok := match(n); ok {
		return v, true
	}
	var zero T
	return zero, false
}

func isLink(n *Node) bool {
	return n.Kind == KindLink || n.Kind == KindAutoLink
}

func toLink(n *Node) Link {
	return Link{URL: n.URL, Text: PlainText(n), Position: n.Position}
}

// GetAllLinks returns every link in document order.
func GetAllLinks(root *Node) []Link {
	var links []Link
	var walk func(*Node)
	walk = func(n *Node) {
		if isLink(n) {
			links = append(links, toLink(n))
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return links
}

// LinkAt returns the outermost link whose extent contains offset.
func LinkAt(root *Node, offset int) (Link, bool) {
	return FindPreorder(root, func(n *Node) (Link, bool) {
		if isLink(n) && PointInPosition(n.Position, offset) {
			return toLink(n), true
		}
		return Link{}, false
	})
}

// PointInPosition reports whether offset lies in [p.Start, p.End).
func PointInPosition(p *Position, offset int) bool {
	return p != nil && p.Start <= offset && offset < p.End
}

// PlainText concatenates the text below n.
func PlainText(n *Node) string {
	var b strings.Builder
	var walk func(*Node)
	walk = func(n *Node) {
		if n.Kind == KindFrontmatter {
			return
		}
		b.WriteString(n.Value)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// FormatLink renders an inline Markdown link. Brackets and backslashes in
// text are escaped. Destinations containing spaces are wrapped in angle
// brackets.
func FormatLink(text, dest string) string {
	if strings.ContainsAny(dest, " \t") {
		dest = "<" + dest + ">"
	}
	return "[" + linkTextEscaper.Replace(text) + "](" + dest + ")"
}

var linkTextEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`)
