package autogen

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/wikiplugin/internal/graph"
	"github.com/starford/wikiplugin/internal/linkpath"
	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/workspace"
)

// ErrNeedsPhysicalNote is returned by generators that only make sense in a
// note with a file behind it.
var ErrNeedsPhysicalNote = errors.New("section requires a saved note")

// Sort orders for the index generator.
const (
	SortTitle = "title"
	SortDate  = "date"
	SortID    = "id"
)

type indexEntry struct {
	note note.Physical
	meta workspace.Metadata
}

// Index lists the notes directly inside a directory. args[0] is the
// directory relative to the wiki home ("" for the home itself) and args[1]
// the sort order, title by default.
func Index(ctx context.Context, ws *workspace.Workspace, current note.Note, args []string) ([]string, error) {
	var dir, sortBy string
	if len(args) > 0 {
		dir = args[0]
	}
	if len(args) > 1 {
		sortBy = args[1]
	}
	var dirs []string
	for _, d := range strings.Split(dir, "/") {
		if d != "" {
			dirs = append(dirs, d)
		}
	}

	notes, err := ws.Notes(ctx)
	if err != nil {
		return nil, err
	}
	var entries []indexEntry
	for _, n := range notes {
		if slices.Equal(n.Directories, dirs) {
			entries = append(entries, indexEntry{note: n, meta: ws.Metadata(ctx, n)})
		}
	}

	switch sortBy {
	case "", SortTitle:
		slices.SortFunc(entries, byTitle)
	case SortDate:
		slices.SortFunc(entries, byDate)
	case SortID:
		slices.SortFunc(entries, byID)
	default:
		msg := fmt.Sprintf("unknown index sort %q, sorting by id", sortBy)
		if err := ws.Host().ReportError(ctx, msg); err != nil {
			return nil, fmt.Errorf("autogen: report error: %w", err)
		}
		slices.SortFunc(entries, byID)
	}

	cfg := ws.Config()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		link, err := linkpath.Format(cfg, current, e.note.Path(cfg))
		if err != nil {
			return nil, err
		}
		lines = append(lines, "- "+markdown.FormatLink(e.meta.DisplayTitle(e.note), link))
	}
	return lines, nil
}

func byID(a, b indexEntry) int {
	return cmp.Compare(a.note.ID, b.note.ID)
}

// byTitle compares titles when both notes have one. Any pair involving an
// untitled note is compared by id.
func byTitle(a, b indexEntry) int {
	if a.meta.Title == "" || b.meta.Title == "" {
		return byID(a, b)
	}
	if c := cmp.Compare(a.meta.Title, b.meta.Title); c != 0 {
		return c
	}
	return byID(a, b)
}

// byDate puts undated notes first.
func byDate(a, b indexEntry) int {
	switch {
	case !a.meta.HasTimestamp() && b.meta.HasTimestamp():
		return -1
	case a.meta.HasTimestamp() && !b.meta.HasTimestamp():
		return 1
	}
	if c := a.meta.Timestamp.Compare(b.meta.Timestamp); c != 0 {
		return c
	}
	return byID(a, b)
}

// Backlinks lists the notes linking to the current note.
func Backlinks(ctx context.Context, ws *workspace.Workspace, current note.Note, _ []string) ([]string, error) {
	p, ok := current.(note.Physical)
	if !ok {
		return nil, fmt.Errorf("backlinks: %w", ErrNeedsPhysicalNote)
	}
	return graph.Backlinks(ctx, ws, p)
}

// Explore lists every note reachable from the current note.
func Explore(ctx context.Context, ws *workspace.Workspace, current note.Note, _ []string) ([]string, error) {
	return graph.Explore(ctx, ws, current)
}
