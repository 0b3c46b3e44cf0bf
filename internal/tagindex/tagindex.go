// Package tagindex renders a listing of every note grouped by frontmatter tag.
package tagindex

import (
	"context"
	"fmt"
	"slices"

	"github.com/starford/wikiplugin/internal/linkpath"
	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/workspace"
)

// Entry is one note carrying a tag.
type Entry struct {
	Note  note.Physical
	Title string
	Path  string
}

// Group lists the notes carrying Tag in enumeration order.
type Group struct {
	Tag     note.Tag
	Entries []Entry
}

// Build groups every note under the wiki home by tag. Groups are sorted by
// tag; notes whose metadata cannot be read simply carry no tags.
func Build(ctx context.Context, ws *workspace.Workspace) ([]Group, error) {
	notes, err := ws.Notes(ctx)
	if err != nil {
		return nil, err
	}
	cfg := ws.Config()

	byTag := make(map[string]*Group)
	for _, n := range notes {
		md := ws.Metadata(ctx, n)
		seen := make(map[string]bool, len(md.Tags))
		for _, tag := range md.Tags {
			key := tag.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			g, ok := byTag[key]
			if !ok {
				g = &Group{Tag: tag}
				byTag[key] = g
			}
			g.Entries = append(g.Entries, Entry{Note: n, Title: md.Title, Path: n.Path(cfg)})
		}
	}

	groups := make([]Group, 0, len(byTag))
	for _, g := range byTag {
		groups = append(groups, *g)
	}
	slices.SortFunc(groups, func(a, b Group) int { return a.Tag.Compare(b.Tag) })
	return groups, nil
}

// Render lays groups out as Markdown lines: a heading per tag followed by a
// link list. Links are formatted relative to from.
func Render(cfg note.Config, from note.Note, groups []Group) ([]string, error) {
	var lines []string
	for _, g := range groups {
		lines = append(lines, "# "+g.Tag.String(), "")
		for _, e := range g.Entries {
			link, err := linkpath.Format(cfg, from, e.Path)
			if err != nil {
				return nil, fmt.Errorf("tagindex: link to %s: %w", e.Note.RelPath(), err)
			}
			lines = append(lines, "- "+markdown.FormatLink(e.Title, link))
		}
		lines = append(lines, "")
	}
	return lines, nil
}

// Open renders the tag index into a new scratch buffer and shows it.
func Open(ctx context.Context, ws *workspace.Workspace) error {
	groups, err := Build(ctx, ws)
	if err != nil {
		return err
	}
	h := ws.Host()
	buf, err := h.NewScratchBuffer(ctx)
	if err != nil {
		return fmt.Errorf("tagindex: new scratch buffer: %w", err)
	}
	lines, err := Render(ws.Config(), note.Scratch{Buffer: buf}, groups)
	if err != nil {
		return err
	}
	if err := h.SetBufferLines(ctx, buf, 0, -1, lines); err != nil {
		return fmt.Errorf("tagindex: set lines: %w", err)
	}
	if err := h.SetCurrentBuffer(ctx, buf); err != nil {
		return fmt.Errorf("tagindex: show buffer: %w", err)
	}
	return nil
}
