// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/host"
	"github.com/starford/wikiplugin/internal/host/headless"
	"github.com/starford/wikiplugin/internal/index"
	"github.com/starford/wikiplugin/internal/mcpserver"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/noteservice"
	"github.com/starford/wikiplugin/internal/storage"
)

// Operation names a one-shot note operation run by Invoke.
type Operation string

const (
	OpNewNote              Operation = "new-note"
	OpOpenIndex            Operation = "open-index"
	OpNewNoteAndInsertLink Operation = "new-note-and-insert-link"
	OpInsertLink           Operation = "insert-link"
	OpInsertLinkToPath     Operation = "insert-link-to-path"
	OpTagIndex             Operation = "tag-index"
	OpFollowLink           Operation = "follow-link"
	OpDeleteNote           Operation = "delete-note"
	OpRegenerate           Operation = "regenerate"
)

var (
	errConfigRequired   = errors.New("config is required")
	errUnknownOperation = errors.New("unknown operation")
)

func newApplication(opts []Option) (*application, error) {
	app := &application{output: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, errConfigRequired
	}
	return app, nil
}

// newLogger builds the JSON logger. stdout stays free for command output
// and the MCP transport.
func newLogger(cfg ApplicationConfig) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closeFn, nil
}

func (a *application) service(store storage.Provider, logger *slog.Logger) *noteservice.Service {
	var opts []noteservice.Option
	if a.now != nil {
		opts = append(opts, noteservice.WithClock(a.now))
	}
	return noteservice.NewService(a.config.Wiki, store, logger, opts...)
}

// Run serves the note operations as MCP tools on stdin/stdout while keeping
// the search index in sync with the wiki.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	dbPath := cfg.Index.DBPath(cfg.Wiki)
	logger.Info("Configuration loaded",
		slog.String("home_path", cfg.Wiki.HomePath),
		slog.String("index_path", dbPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Wiki.HomePath, 0o755); err != nil {
		return fmt.Errorf("create wiki dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Wiki.HomePath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	if err := index.Sync(db, store, cfg.Wiki, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(app.service(store, logger), store, db, logger)
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, db, store, cfg.Wiki, logger, srv.NoteChanged)
	})

	g.Go(func() error {
		// The stdio server returns once stdin closes; stop the watcher with it.
		defer stop()
		logger.Info("Starting MCP server on stdio")
		if err := srv.ServeStdio(); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// Invoke runs one note operation against a headless host and prints its
// result. args carries the operation's positional arguments.
func Invoke(ctx context.Context, op Operation, args []string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := storage.NewFS(cfg.Wiki.HomePath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	svc := app.service(store, logger)

	prompter := app.prompter
	if prompter == nil {
		prompter = headless.Terminal{}
	}
	h := headless.New(headless.WithPrompter(prompter), headless.WithLogger(logger))
	if app.file != "" {
		if _, err := h.Open(app.file); err != nil {
			return err
		}
	} else {
		h.OpenScratch(nil)
	}
	h.SetCursor(app.cursor)

	out, err := run(ctx, svc, h, op, args)
	if err == nil {
		err = h.Flush()
	}
	if err != nil {
		svc.Report(ctx, h, err)
		if errors.Is(err, apperr.ErrCancelled) {
			return nil
		}
		return err
	}

	for _, p := range h.Opened() {
		fmt.Fprintln(app.output, p)
	}
	if out != "" {
		fmt.Fprint(app.output, out)
	}
	return nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// splitDirs splits a slash separated note location, dropping empty parts.
func splitDirs(s string) []string {
	var parts []string
	for _, d := range strings.Split(filepath.ToSlash(s), "/") {
		if d != "" {
			parts = append(parts, d)
		}
	}
	return parts
}

// run dispatches op and returns any text to print besides opened files.
func run(ctx context.Context, svc *noteservice.Service, h *headless.Host, op Operation, args []string) (string, error) {
	cfg := svc.Config()
	switch op {
	case OpNewNote:
		_, err := svc.NewNote(ctx, h, splitDirs(arg(args, 0)), true)
		return "", err
	case OpOpenIndex:
		return "", svc.OpenIndex(ctx, h)
	case OpNewNoteAndInsertLink:
		n, err := svc.NewNoteAndInsertLink(ctx, h)
		if err != nil {
			return "", err
		}
		return n.Path(cfg) + "\n", nil
	case OpInsertLink:
		var target *note.Physical
		if parts := splitDirs(arg(args, 0)); len(parts) > 0 {
			p := note.NewPhysical(parts[:len(parts)-1], parts[len(parts)-1])
			target = &p
		}
		return "", svc.InsertLinkAtCursorOrCreate(ctx, h, target, arg(args, 1))
	case OpInsertLinkToPath:
		return "", svc.InsertLinkToPathAtCursorOrCreate(ctx, h, arg(args, 0), arg(args, 1))
	case OpTagIndex:
		if err := svc.OpenTagIndex(ctx, h); err != nil {
			return "", err
		}
		buf, err := h.CurrentBuffer(ctx)
		if err != nil {
			return "", err
		}
		lines, err := h.BufferLines(ctx, buf)
		if err != nil {
			return "", err
		}
		return host.JoinLines(lines), nil
	case OpFollowLink:
		_, err := svc.FollowLink(ctx, h)
		return "", err
	case OpDeleteNote:
		n, err := svc.DeleteNote(ctx, h)
		if err != nil {
			return "", err
		}
		return "deleted " + n.Path(cfg) + "\n", nil
	case OpRegenerate:
		return "", svc.RegenerateAutogeneratedSections(ctx, h)
	}
	return "", fmt.Errorf("%w: %s", errUnknownOperation, op)
}
