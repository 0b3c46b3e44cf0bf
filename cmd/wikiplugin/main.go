package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/wikiplugin/internal"
	pkgconfig "github.com/starford/wikiplugin/pkg/config"
)

// defaultConfigPath is used when --config is not given. It may not exist.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join("config", "config.yaml")
	}
	return filepath.Join(dir, "wikiplugin", "config.yaml")
}

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	var err error
	if path := cmd.String("config"); path != "" {
		err = pkgconfig.Load(path, cfg)
	} else {
		err = pkgconfig.LoadOptional(defaultConfigPath(), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// invoke returns the action running op on the buffer selected by --file.
func invoke(op internal.Operation) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithCursor(int(cmd.Int("offset"))),
		}
		if file := cmd.String("file"); file != "" {
			opts = append(opts, internal.WithFile(file))
		}
		return internal.Invoke(ctx, op, cmd.Args().Slice(), opts...)
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "wikiplugin",
		Usage: "Personal Markdown wiki: notes, links, tag index, backlinks and generated sections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("WIKIPLUGIN_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Note to use as the current buffer (default: an empty scratch buffer)",
			},
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "Cursor byte offset in the current buffer",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the note operations as MCP tools on stdio and keep the search index in sync",
				Action: serve,
			},
			{
				Name:      string(internal.OpNewNote),
				Usage:     "Prompt for a title and create a note",
				ArgsUsage: "[dir]",
				Action:    invoke(internal.OpNewNote),
			},
			{
				Name:   string(internal.OpOpenIndex),
				Usage:  "Print the path of the wiki index note",
				Action: invoke(internal.OpOpenIndex),
			},
			{
				Name:   string(internal.OpNewNoteAndInsertLink),
				Usage:  "Create a note next to --file and link to it at --offset",
				Action: invoke(internal.OpNewNoteAndInsertLink),
			},
			{
				Name:      string(internal.OpInsertLink),
				Usage:     "Link to a note (dir/id) at --offset, or to a new note when none is given",
				ArgsUsage: "[dir/id] [text]",
				Action:    invoke(internal.OpInsertLink),
			},
			{
				Name:      string(internal.OpInsertLinkToPath),
				Usage:     "Link to the note file at path at --offset, or to a new note when none is given",
				ArgsUsage: "[path] [text]",
				Action:    invoke(internal.OpInsertLinkToPath),
			},
			{
				Name:   string(internal.OpTagIndex),
				Usage:  "Print every note grouped by tag",
				Action: invoke(internal.OpTagIndex),
			},
			{
				Name:   string(internal.OpFollowLink),
				Usage:  "Print the note linked at --offset of --file",
				Action: invoke(internal.OpFollowLink),
			},
			{
				Name:   string(internal.OpDeleteNote),
				Usage:  "Delete the note --file after confirmation",
				Action: invoke(internal.OpDeleteNote),
			},
			{
				Name:   string(internal.OpRegenerate),
				Usage:  "Rewrite the generated sections of --file",
				Action: invoke(internal.OpRegenerate),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
