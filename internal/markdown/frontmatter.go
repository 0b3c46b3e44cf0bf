package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v3"

	"github.com/starford/wikiplugin/internal/note"
)

var (
	ErrNoFrontmatter = errors.New("document has no frontmatter")
	ErrNoDocuments   = errors.New("frontmatter contains no yaml document")
	ErrNotTable      = errors.New("frontmatter is not a mapping")
	ErrMissingField  = errors.New("missing field")
	ErrWrongType     = errors.New("wrong type")
)

// FieldError reports which frontmatter field failed extraction.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("frontmatter field %q: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

var kindFrontmatter = ast.NewNodeKind(string(KindFrontmatter))

// frontmatterNode is a '---' delimited block on the first line of a document.
type frontmatterNode struct {
	ast.BaseBlock
	start, stop int
}

func (n *frontmatterNode) Kind() ast.NodeKind { return kindFrontmatter }

func (n *frontmatterNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

type frontmatterParser struct{}

func (frontmatterParser) Trigger() []byte { return []byte{'-'} }

func (frontmatterParser) Open(parent ast.Node, reader text.Reader, _ parser.Context) (ast.Node, parser.State) {
	if lineNum, _ := reader.Position(); lineNum != 0 || parent.Kind() != ast.KindDocument {
		return nil, parser.NoChildren
	}
	line, seg := reader.PeekLine()
	if !isSeparator(line) || !hasSeparator(reader.Source()[seg.Stop:]) {
		return nil, parser.NoChildren
	}
	return &frontmatterNode{start: seg.Start}, parser.NoChildren
}

func (frontmatterParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	line, seg := reader.PeekLine()
	if isSeparator(line) {
		node.(*frontmatterNode).stop = seg.Start + len(bytes.TrimRight(line, "\r\n"))
		reader.Advance(seg.Len())
		return parser.Close
	}
	node.Lines().Append(seg)
	return parser.Continue | parser.NoChildren
}

func (frontmatterParser) Close(ast.Node, text.Reader, parser.Context) {}
func (frontmatterParser) CanInterruptParagraph() bool                 { return false }
func (frontmatterParser) CanAcceptIndentedLine() bool                 { return false }

func isSeparator(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r\n")) == "---"
}

func hasSeparator(src []byte) bool {
	for len(src) > 0 {
		line := src
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, src = src[:i+1], src[i+1:]
		} else {
			src = nil
		}
		if isSeparator(line) {
			return true
		}
	}
	return false
}

type frontmatterExtension struct{}

func (frontmatterExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithBlockParsers(
		util.Prioritized(frontmatterParser{}, 0),
	))
}

// FindFrontmatter returns the raw YAML of the document's frontmatter block.
func FindFrontmatter(root *Node) (string, error) {
	raw, ok := FindPreorder(root, func(n *Node) (string, bool) {
		return n.Value, n.Kind == KindFrontmatter
	})
	if !ok {
		return "", ErrNoFrontmatter
	}
	return raw, nil
}

// ParseFrontmatter loads the first YAML document of the frontmatter block.
func ParseFrontmatter(root *Node) (*yaml.Node, error) {
	raw, err := FindFrontmatter(root)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.NewDecoder(strings.NewReader(raw)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoDocuments
		}
		return nil, fmt.Errorf("markdown: parse frontmatter: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrNoDocuments
	}
	return doc.Content[0], nil
}

func lookup(fm *yaml.Node, key string) (*yaml.Node, error) {
	fm = resolve(fm)
	if fm == nil || fm.Kind != yaml.MappingNode {
		return nil, ErrNotTable
	}
	for i := 0; i+1 < len(fm.Content); i += 2 {
		if fm.Content[i].Value == key {
			return resolve(fm.Content[i+1]), nil
		}
	}
	return nil, &FieldError{Field: key, Err: ErrMissingField}
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// stringValue accepts plain strings and scalars YAML would otherwise read
// as timestamps, so that unquoted dates stay text.
func stringValue(n *yaml.Node) (string, bool) {
	if n.Kind != yaml.ScalarNode {
		return "", false
	}
	switch n.ShortTag() {
	case "!!str", "!!timestamp":
		return n.Value, true
	}
	return "", false
}

// GetTitle returns the string title field.
func GetTitle(fm *yaml.Node) (string, error) {
	v, err := lookup(fm, "title")
	if err != nil {
		return "", err
	}
	s, ok := stringValue(v)
	if !ok {
		return "", &FieldError{Field: "title", Err: ErrWrongType}
	}
	return s, nil
}

// GetTags returns the tags field, given either as one space separated string
// or as a sequence of strings.
func GetTags(fm *yaml.Node) ([]note.Tag, error) {
	v, err := lookup(fm, "tags")
	if err != nil {
		return nil, err
	}
	if s, ok := stringValue(v); ok {
		var tags []note.Tag
		for _, f := range strings.Fields(s) {
			tags = append(tags, note.ParseTag(f))
		}
		return tags, nil
	}
	if v.Kind != yaml.SequenceNode {
		return nil, &FieldError{Field: "tags", Err: ErrWrongType}
	}
	tags := make([]note.Tag, 0, len(v.Content))
	for _, item := range v.Content {
		s, ok := stringValue(resolve(item))
		if !ok {
			return nil, &FieldError{Field: "tags", Err: ErrWrongType}
		}
		tags = append(tags, note.ParseTag(s))
	}
	return tags, nil
}

// GetTimestamp combines the date field with the optional time field, which
// defaults to midnight. Both are parsed with the given strftime formats.
func GetTimestamp(fm *yaml.Node, dateFormat, timeFormat string) (time.Time, error) {
	v, err := lookup(fm, "date")
	if err != nil {
		return time.Time{}, err
	}
	s, ok := stringValue(v)
	if !ok {
		return time.Time{}, &FieldError{Field: "date", Err: ErrWrongType}
	}
	date, err := timefmt.Parse(s, dateFormat)
	if err != nil {
		return time.Time{}, &FieldError{Field: "date", Err: err}
	}

	var clock time.Time
	v, err = lookup(fm, "time")
	switch {
	case errors.Is(err, ErrMissingField):
	case err != nil:
		return time.Time{}, err
	default:
		s, ok := stringValue(v)
		if !ok {
			return time.Time{}, &FieldError{Field: "time", Err: ErrWrongType}
		}
		if clock, err = timefmt.Parse(s, timeFormat); err != nil {
			return time.Time{}, &FieldError{Field: "time", Err: err}
		}
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), nil
}
