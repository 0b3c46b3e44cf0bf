// Package graph walks the link graph between notes.
//
// Both walks read every note they touch on each call. There is no link index,
// so backlinks cost O(notes x links) and explore re-reads reachable notes.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/starford/wikiplugin/internal/linkpath"
	"github.com/starford/wikiplugin/internal/markdown"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/workspace"
)

// Target strips the fragment from a link destination and reports whether
// what remains can name a note: a relative or absolute path without a URL
// scheme.
func Target(link string) (string, bool) {
	if link == "" {
		return "", false
	}
	if u, err := url.Parse(link); err == nil && u.Scheme != "" && !isVolume(link) {
		return "", false
	}
	if i := strings.IndexByte(link, '#'); i >= 0 {
		link = link[:i]
	}
	if link == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(link); err == nil {
		link = unescaped
	}
	return link, true
}

// isVolume reports whether link starts with a Windows drive letter, which
// url.Parse reads as a scheme.
func isVolume(link string) bool {
	return filepath.VolumeName(link) != ""
}

// Backlinks lists every note that links to target as "- [title](link)" lines,
// with links relative to target. Untitled notes show their id.
func Backlinks(ctx context.Context, ws *workspace.Workspace, target note.Physical) ([]string, error) {
	cfg := ws.Config()
	targetPath := target.Path(cfg)

	notes, err := ws.Notes(ctx)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, n := range notes {
		if n.Equal(target) {
			continue
		}
		md := ws.Metadata(ctx, n)
		if !linksTo(cfg, n, md.Links, targetPath) {
			continue
		}
		link, err := linkpath.Format(cfg, target, n.Path(cfg))
		if err != nil {
			return nil, fmt.Errorf("graph: backlink from %s: %w", n.RelPath(), err)
		}
		lines = append(lines, "- "+markdown.FormatLink(md.DisplayTitle(n), link))
	}
	return lines, nil
}

func linksTo(cfg note.Config, from note.Physical, links []markdown.Link, targetPath string) bool {
	for _, l := range links {
		dest, ok := Target(l.URL)
		if !ok {
			continue
		}
		p, err := linkpath.Resolve(cfg, from, dest)
		if err == nil && p == targetPath {
			return true
		}
	}
	return false
}

// Reachable returns every physical note reachable from root by following
// links, excluding root itself, sorted by note order. Links that cannot be
// read or resolved are skipped.
func Reachable(ctx context.Context, ws *workspace.Workspace, root note.Note) []note.Physical {
	cfg := ws.Config()
	logger := ws.Logger()

	seen := make(map[string]note.Physical)
	var rootPath string
	if p, ok := root.(note.Physical); ok {
		rootPath = p.Path(cfg)
	}

	frontier := []note.Note{root}
	for len(frontier) > 0 {
		current := frontier[len(frontier)-1]
		frontier = frontier[:len(frontier)-1]

		for _, l := range ws.Metadata(ctx, current).Links {
			dest, ok := Target(l.URL)
			if !ok || filepath.Ext(dest) != note.Extension {
				continue
			}
			path, err := linkpath.Resolve(cfg, current, dest)
			if err != nil {
				continue
			}
			n, err := note.ParseFromFilepath(cfg, path)
			if err != nil {
				logger.Debug("graph: skip link", slog.String("link", l.URL), slog.String("error", err.Error()))
				continue
			}
			key := n.Path(cfg)
			if key == rootPath {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = n
			frontier = append(frontier, n)
		}
	}

	out := make([]note.Physical, 0, len(seen))
	for _, n := range seen {
		out = append(out, n)
	}
	slices.SortFunc(out, note.Compare)
	return out
}

// Explore renders Reachable as "- [title](link)" lines with links relative
// to root.
func Explore(ctx context.Context, ws *workspace.Workspace, root note.Note) ([]string, error) {
	cfg := ws.Config()
	var lines []string
	for _, n := range Reachable(ctx, ws, root) {
		md := ws.Metadata(ctx, n)
		link, err := linkpath.Format(cfg, root, n.Path(cfg))
		if err != nil {
			return nil, fmt.Errorf("graph: explore link to %s: %w", n.RelPath(), err)
		}
		lines = append(lines, "- "+markdown.FormatLink(md.DisplayTitle(n), link))
	}
	return lines, nil
}
