package note

import (
	"slices"
	"strings"
)

// TagSeparator separates the segments of a hierarchical tag.
const TagSeparator = "::"

// Tag is a hierarchical label such as project::subproject.
type Tag []string

// ParseTag splits s on TagSeparator.
func ParseTag(s string) Tag {
	return Tag(strings.Split(s, TagSeparator))
}

// String joins the segments back with TagSeparator.
func (t Tag) String() string {
	return strings.Join(t, TagSeparator)
}

// Compare orders tags segment-wise; a tag sorts before its own children.
func (t Tag) Compare(o Tag) int {
	return slices.Compare(t, o)
}

// Equal reports whether t and o have the same segments.
func (t Tag) Equal(o Tag) bool {
	return slices.Equal(t, o)
}
