package internal

import (
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wikiplugin/internal/note"
)

// HomeEnv names the environment variable that supplies the default wiki home.
const HomeEnv = "WIKIPLUGIN_HOME"

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Wiki  note.Config       `yaml:"wiki"`
	Index IndexConfig       `yaml:"index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Wiki.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	LogFile  string     `yaml:"log_file"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.LogLevel, validation.In(slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError)),
	)
}

// IndexConfig holds the search index configuration. It is only used by the
// serve command.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// DBPath returns the index file, defaulting to a hidden directory in the
// wiki home that note listings skip.
func (c *IndexConfig) DBPath(wiki note.Config) string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(wiki.HomePath, ".wikiplugin", "index.db")
}

// NewDefaultConfig creates a new configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Wiki: note.Config{
			HomePath:              os.Getenv(HomeEnv),
			NoteIDTimestampFormat: note.DefaultNoteIDTimestampFormat,
			DateFormat:            note.DefaultDateFormat,
			TimeFormat:            note.DefaultTimeFormat,
		},
	}
}
