package internal

import (
	"io"
	"time"

	"github.com/starford/wikiplugin/internal/host/headless"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	output   io.Writer
	prompter headless.Prompter
	file     string
	cursor   int
	now      func() time.Time
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where Invoke prints its result.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.output = w
	}
}

// WithPrompter sets how Invoke asks the user for input.
func WithPrompter(p headless.Prompter) Option {
	return func(a *application) {
		a.prompter = p
	}
}

// WithFile makes the note at path the current buffer of an Invoke call.
// Without it the operation runs in an empty scratch buffer.
func WithFile(path string) Option {
	return func(a *application) {
		a.file = path
	}
}

// WithCursor sets the cursor byte offset of an Invoke call.
func WithCursor(offset int) Option {
	return func(a *application) {
		a.cursor = offset
	}
}

// WithClock overrides the time source for new notes.
func WithClock(now func() time.Time) Option {
	return func(a *application) {
		a.now = now
	}
}
