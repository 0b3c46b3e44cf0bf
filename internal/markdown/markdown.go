// Package markdown parses notes into a small document tree with byte offsets
// and extracts the frontmatter fields and links the wiki works with.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// ErrInvalidUTF8 is returned by Parse for input that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid utf-8")

// Kind names a node type.
type Kind string

const (
	KindDocument    Kind = "Document"
	KindFrontmatter Kind = "Frontmatter"
	KindParagraph   Kind = "Paragraph"
	KindHeading     Kind = "Heading"
	KindText        Kind = "Text"
	KindLink        Kind = "Link"
	KindImage       Kind = "Image"
	KindAutoLink    Kind = "AutoLink"
)

// Position is a half-open byte range [Start, End) in the parsed source.
type Position struct {
	Start int
	End   int
}

// Node is a parsed Markdown element.
type Node struct {
	Kind Kind
	// Position is nil when the element's extent cannot be derived from the source.
	Position *Position
	// Value holds the text of Text nodes, the label of AutoLink nodes and the
	// raw YAML of Frontmatter nodes.
	Value string
	// URL and Title are set on Link, Image and AutoLink nodes.
	URL      string
	Title    string
	Children []*Node
}

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM, frontmatterExtension{}),
)

// Parse parses GitHub-flavored Markdown with an optional leading YAML
// frontmatter block.
func Parse(content string) (*Node, error) {
	src := []byte(content)
	if !utf8.Valid(src) {
		return nil, fmt.Errorf("markdown: parse: %w", ErrInvalidUTF8)
	}
	doc := md.Parser().Parse(text.NewReader(src))
	return convert(src, doc, 0), nil
}

// convert maps n and its subtree. from is a lower bound for n's offset in src.
func convert(src []byte, n ast.Node, from int) *Node {
	out := &Node{Kind: Kind(n.Kind().String())}
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		from = max(from, n.Lines().At(0).Start)
	}
	var pos *Position
	next := from
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		child := convert(src, c, next)
		out.Children = append(out.Children, child)
		pos = union(pos, child.Position)
		if child.Position != nil {
			next = max(next, child.Position.End)
		}
	}

	switch n := n.(type) {
	case *ast.Document:
		pos = &Position{Start: 0, End: len(src)}
	case *frontmatterNode:
		out.Value = string(linesValue(src, n.Lines()))
		pos = &Position{Start: n.start, End: n.stop}
	case *ast.Text:
		out.Value = string(n.Segment.Value(src))
		pos = &Position{Start: n.Segment.Start, End: n.Segment.Stop}
	case *ast.String:
		out.Value = string(n.Value)
	case *ast.Link:
		out.URL, out.Title = string(n.Destination), string(n.Title)
		if pos == nil {
			pos = emptyLinkPosition(src, from, false)
		} else {
			pos = linkPosition(src, pos, false)
		}
	case *ast.Image:
		out.URL, out.Title = string(n.Destination), string(n.Title)
		if pos == nil {
			pos = emptyLinkPosition(src, from, true)
		} else {
			pos = linkPosition(src, pos, true)
		}
	case *ast.AutoLink:
		out.URL = string(n.URL(src))
		label := n.Label(src)
		out.Value = string(label)
		// Label is a subslice of src.
		start := cap(src) - cap(label)
		p := Position{Start: start, End: start + len(label)}
		if p.Start > 0 && src[p.Start-1] == '<' && p.End < len(src) && src[p.End] == '>' {
			p.Start--
			p.End++
		}
		pos = &p
	default:
		if n.Type() == ast.TypeBlock {
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				s := lines.At(i)
				pos = union(pos, &Position{Start: s.Start, End: s.Stop})
			}
		}
	}
	out.Position = pos
	return out
}

func union(a, b *Position) *Position {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return &Position{Start: min(a.Start, b.Start), End: max(a.End, b.End)}
}

func linesValue(src []byte, lines *text.Segments) []byte {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		s := lines.At(i)
		buf.Write(s.Value(src))
	}
	return buf.Bytes()
}

// linkPosition widens the extent of a link label to the whole link syntax:
// the opening bracket (and '!' for images) through the closing ')' of an
// inline destination or ']' of a reference.
func linkPosition(src []byte, label *Position, image bool) *Position {
	open := labelOpen(src, label.Start)
	if open < 0 {
		return nil
	}
	rb := labelClose(src, label.End)
	if rb < 0 {
		return nil
	}
	return linkSpan(src, open, rb, image)
}

// emptyLinkPosition finds a link whose label has no content, such as
// "[](a.md)", scanning forward from from.
func emptyLinkPosition(src []byte, from int, image bool) *Position {
	for i := from; i < len(src); i++ {
		if src[i] != '[' || (!image && i > 0 && src[i-1] == '!') {
			continue
		}
		rb := labelClose(src, i+1)
		if rb < 0 {
			continue
		}
		if p := linkSpan(src, i, rb, image); p != nil {
			return p
		}
	}
	return nil
}

// linkSpan extends the label brackets src[open] and src[rb] over the '!'
// of an image and the destination or reference that follows.
func linkSpan(src []byte, open, rb int, image bool) *Position {
	if image {
		if open == 0 || src[open-1] != '!' {
			return nil
		}
		open--
	}
	end := rb + 1
	if end < len(src) {
		switch src[end] {
		case '(':
			if j := destinationEnd(src, end); j >= 0 {
				end = j + 1
			}
		case '[':
			if j := bytes.IndexByte(src[end:], ']'); j >= 0 {
				end += j + 1
			}
		}
	}
	return &Position{Start: open, End: end}
}

func isLabelPadding(c byte) bool {
	switch c {
	case '*', '_', '~', '`', ' ', '\t', '\n':
		return true
	}
	return false
}

func labelOpen(src []byte, i int) int {
	for i--; i >= 0; i-- {
		if src[i] == '[' {
			return i
		}
		if !isLabelPadding(src[i]) {
			return -1
		}
	}
	return -1
}

func labelClose(src []byte, i int) int {
	for ; i < len(src); i++ {
		if src[i] == ']' {
			return i
		}
		if !isLabelPadding(src[i]) {
			return -1
		}
	}
	return -1
}

// destinationEnd returns the index of the ')' closing the inline destination
// that opens at src[i].
func destinationEnd(src []byte, i int) int {
	depth := 0
	var quote byte
	angle := false
	for j := i; j < len(src); j++ {
		c := src[j]
		switch {
		case c == '\\':
			j++
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case angle:
			if c == '>' {
				angle = false
			}
		case c == '<':
			angle = true
		case (c == '"' || c == '\'') && (src[j-1] == ' ' || src[j-1] == '\t'):
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
