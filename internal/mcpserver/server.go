// Package mcpserver exposes the wiki note operations as MCP (Model Context
// Protocol) tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wikiplugin/internal/host"
	"github.com/starford/wikiplugin/internal/host/headless"
	"github.com/starford/wikiplugin/internal/index"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/noteservice"
	"github.com/starford/wikiplugin/internal/storage"
)

const contractURI = "wikiplugin://note-format"

// Server wraps the MCP server with the wiki tools. Tool calls run one at a
// time, each against a fresh headless host.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	store  storage.Provider
	db     *index.DB
	logger *slog.Logger
	events *notifier

	mu sync.Mutex
}

// New creates a new MCP server with all wiki tools registered.
func New(svc *noteservice.Service, store storage.Provider, db *index.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{svc: svc, store: store, db: db, logger: logger}

	s.mcp = server.NewMCPServer(
		"wikiplugin",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, true),
	)
	s.events = newNotifier(s.mcp.SendNotificationToAllClients, 2*time.Second)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note titles, tags and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes in a folder, or the indexed notes carrying a tag."),
		mcp.WithString("folder", mcp.Description("Optional folder relative to the wiki home")),
		mcp.WithString("tag", mcp.Description("Optional tag; child tags such as tag::sub match too")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note relative to the wiki home (e.g. folder/note.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("new_note",
		mcp.WithDescription("Create a note with a title/date/time/tags frontmatter template. "+
			"The file name is the current timestamp. Returns the new note's path."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title of the new note")),
		mcp.WithString("folder", mcp.Description("Optional folder relative to the wiki home")),
	), s.newNote)

	s.mcp.AddTool(mcp.NewTool("regenerate_sections",
		mcp.WithDescription("Rewrite the auto-generated sections (index, backlinks, explore) of a note and save it."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note relative to the wiki home")),
	), s.regenerateSections)

	s.mcp.AddTool(mcp.NewTool("tag_index",
		mcp.WithDescription("Render every note grouped by tag as Markdown."),
	), s.tagIndex)

	s.mcp.AddTool(mcp.NewTool("backlinks",
		mcp.WithDescription("List the notes that link to the specified note, as Markdown list items."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note relative to the wiki home")),
	), s.backlinks)

	s.mcp.AddTool(mcp.NewTool("follow_link",
		mcp.WithDescription("Resolve the link at a byte offset of a note to the path of its target."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the note holding the link")),
		mcp.WithNumber("offset", mcp.Required(), mcp.Description("Byte offset of a position inside the link")),
	), s.followLink)

	s.mcp.AddTool(mcp.NewTool("get_note_contract",
		mcp.WithDescription("Returns the wiki note format contract. "+
			"Call this before editing notes to keep frontmatter and markers intact."),
	), s.getNoteContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Note Format Contract",
			mcp.WithResourceDescription("Markdown note format used by the wiki."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// NoteChanged tells connected clients that the watcher re-indexed path.
// It matches index.EventCallback.
func (s *Server) NoteChanged(kind, path string) {
	s.events.publish(kind, path)
}

// Close stops change notifications.
func (s *Server) Close() {
	s.events.close()
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// session runs fn against a fresh headless host and flushes the buffers it
// modified. Failures go through the service's reporting path and come back
// as tool errors.
func (s *Server) session(ctx context.Context, p headless.Prompter, fn func(h *headless.Host) (string, error)) *mcp.CallToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := []headless.Option{headless.WithLogger(s.logger)}
	if p != nil {
		opts = append(opts, headless.WithPrompter(p))
	}
	h := headless.New(opts...)

	text, err := fn(h)
	if err == nil {
		err = h.Flush()
	}
	if err != nil {
		s.svc.Report(ctx, h, err)
		return mcp.NewToolResultError(noteservice.FormatError(err))
	}
	return mcp.NewToolResultText(text)
}

// notePath maps a tool argument to a note and its absolute path.
func (s *Server) notePath(path string) (note.Physical, string, error) {
	cfg := s.svc.Config()
	n, err := note.ParseFromFilepath(cfg, path)
	if err != nil {
		return note.Physical{}, "", err
	}
	return n, n.Path(cfg), nil
}

// refresh re-indexes a note written by a tool so that search sees it
// before the watcher does.
func (s *Server) refresh(rel string) {
	if s.db == nil {
		return
	}
	if err := index.Refresh(s.db, s.store, s.svc.Config(), rel); err != nil {
		s.logger.Warn("mcp: refresh index failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 20)
	results, err := s.db.Search(query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if tag := req.GetString("tag", ""); tag != "" {
		rows, err := s.db.NotesWithTag(tag)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(rows, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	files, err := s.store.List(req.GetString("folder", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, filepath.ToSlash(f.Path))
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.session(ctx, nil, func(h *headless.Host) (string, error) {
		n, _, err := s.notePath(path)
		if err != nil {
			return "", err
		}
		return s.svc.ReadNote(ctx, h, n)
	}), nil
}

func (s *Server) newNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var dirs []string
	for _, d := range strings.Split(filepath.ToSlash(req.GetString("folder", "")), "/") {
		if d != "" {
			dirs = append(dirs, d)
		}
	}
	return s.session(ctx, headless.Answers(title), func(h *headless.Host) (string, error) {
		n, err := s.svc.NewNote(ctx, h, dirs, false)
		if err != nil {
			return "", err
		}
		s.refresh(n.RelPath())
		return filepath.ToSlash(n.RelPath()), nil
	}), nil
}

func (s *Server) regenerateSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var rel string
	res := s.session(ctx, nil, func(h *headless.Host) (string, error) {
		n, abs, err := s.notePath(path)
		if err != nil {
			return "", err
		}
		buf, err := h.Open(abs)
		if err != nil {
			return "", err
		}
		if err := s.svc.RegenerateAutogeneratedSections(ctx, h); err != nil {
			return "", err
		}
		lines, err := h.BufferLines(ctx, buf)
		if err != nil {
			return "", err
		}
		rel = n.RelPath()
		return host.JoinLines(lines), nil
	})
	if !res.IsError {
		s.refresh(rel)
	}
	return res, nil
}

func (s *Server) tagIndex(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.session(ctx, nil, func(h *headless.Host) (string, error) {
		if err := s.svc.OpenTagIndex(ctx, h); err != nil {
			return "", err
		}
		return currentContent(ctx, h)
	}), nil
}

func (s *Server) backlinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.session(ctx, nil, func(h *headless.Host) (string, error) {
		n, _, err := s.notePath(path)
		if err != nil {
			return "", err
		}
		lines, err := s.svc.Backlinks(ctx, h, n)
		if err != nil {
			return "", err
		}
		if len(lines) == 0 {
			return "no backlinks found", nil
		}
		return strings.Join(lines, "\n"), nil
	}), nil
}

func (s *Server) followLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset, err := req.RequireInt("offset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.session(ctx, nil, func(h *headless.Host) (string, error) {
		_, abs, err := s.notePath(path)
		if err != nil {
			return "", err
		}
		if _, err := h.Open(abs); err != nil {
			return "", err
		}
		h.SetCursor(offset)
		target, err := s.svc.FollowLink(ctx, h)
		if err != nil {
			return "", err
		}
		if rel, err := filepath.Rel(s.svc.Config().HomePath, target); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel), nil
		}
		return target, nil
	}), nil
}

func (s *Server) getNoteContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormatContract), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     NoteFormatContract,
		},
	}, nil
}

func currentContent(ctx context.Context, h host.Host) (string, error) {
	buf, err := h.CurrentBuffer(ctx)
	if err != nil {
		return "", err
	}
	lines, err := h.BufferLines(ctx, buf)
	if err != nil {
		return "", fmt.Errorf("read buffer: %w", err)
	}
	return host.JoinLines(lines), nil
}
