// Package autogen regenerates the marker-delimited sections of a note.
//
// A section starts at a line containing
//
//	wikiplugin_autogenerate <command> [<arg>[;<arg>]...]
//
// and ends at the next line containing wikiplugin_autogenerate_end. Markers
// may sit inside an HTML comment so they stay invisible when rendered.
package autogen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/starford/wikiplugin/internal/host"
	"github.com/starford/wikiplugin/internal/note"
	"github.com/starford/wikiplugin/internal/workspace"
)

// EndMarker closes a generated section.
const EndMarker = "wikiplugin_autogenerate_end"

var (
	startPattern = regexp.MustCompile(`\bwikiplugin_autogenerate\s+(\w+)(.*?)(?:-->.*)?$`)
	endPattern   = regexp.MustCompile(`\b` + EndMarker + `\b`)
)

// ErrUnknownCommand is reported for start markers naming no generator.
var ErrUnknownCommand = errors.New("unknown autogenerate command")

// Buffer is the text being rewritten.
type Buffer interface {
	Lines(ctx context.Context) ([]string, error)
	// SetLines replaces lines [start, end) with lines.
	SetLines(ctx context.Context, start, end int, lines []string) error
}

// HostBuffer adapts an editor buffer to Buffer.
type HostBuffer struct {
	Host   host.Host
	Buffer host.Buffer
}

// Lines returns the buffer lines.
func (b HostBuffer) Lines(ctx context.Context) ([]string, error) {
	return b.Host.BufferLines(ctx, b.Buffer)
}

// SetLines replaces lines [start, end) in the buffer.
func (b HostBuffer) SetLines(ctx context.Context, start, end int, lines []string) error {
	return b.Host.SetBufferLines(ctx, b.Buffer, start, end, lines)
}

// Generator computes the replacement lines for one section. current is the
// note being rewritten.
type Generator func(ctx context.Context, ws *workspace.Workspace, current note.Note, args []string) ([]string, error)

// Rewriter dispatches sections to generators by command name.
type Rewriter struct {
	ws         *workspace.Workspace
	generators map[string]Generator
}

// New returns a Rewriter with the index, backlinks and explore generators.
func New(ws *workspace.Workspace) *Rewriter {
	r := &Rewriter{ws: ws, generators: make(map[string]Generator)}
	r.Register("index", Index)
	r.Register("backlinks", Backlinks)
	r.Register("explore", Explore)
	return r
}

// Register adds or replaces the generator for command.
func (r *Rewriter) Register(command string, g Generator) {
	r.generators[command] = g
}

type startMarker struct {
	line    int
	column  int
	command string
	args    []string
}

// ParseStart reports whether line holds a start marker and returns its
// command and arguments.
func ParseStart(line string) (command string, args []string, ok bool) {
	m, ok := parseStart(line)
	return m.command, m.args, ok
}

func parseStart(line string) (startMarker, bool) {
	loc := startPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return startMarker{}, false
	}
	m := startMarker{column: loc[0], command: line[loc[2]:loc[3]]}
	tail := line[loc[4]:loc[5]]
	if strings.HasPrefix(tail, ";") {
		tail = tail[1:]
	} else {
		tail = strings.TrimSpace(tail)
	}
	if tail != "" {
		for _, a := range strings.Split(tail, ";") {
			m.args = append(m.args, strings.TrimSpace(a))
		}
	}
	return m, true
}

func findStarts(lines []string) []startMarker {
	var out []startMarker
	for i, l := range lines {
		if m, ok := parseStart(l); ok {
			m.line = i
			out = append(out, m)
		}
	}
	return out
}

func findEnd(lines []string, after int) (int, bool) {
	for i := after + 1; i < len(lines); i++ {
		if endPattern.MatchString(lines[i]) {
			return i, true
		}
	}
	return 0, false
}

// regionEnd returns the line of the end marker closing the start marker at
// ordinal. It reports false when an end marker has to be inserted: there is
// none below the start, or the nearest one belongs to a later section.
func regionEnd(lines []string, starts []startMarker, ordinal int) (int, bool) {
	end, ok := findEnd(lines, starts[ordinal].line)
	if !ok {
		return 0, false
	}
	if ordinal+1 < len(starts) && starts[ordinal+1].line < end {
		return 0, false
	}
	return end, true
}

// endMarkerFor builds an end marker line matching the decoration of the
// start marker line.
func endMarkerFor(startLine string, m startMarker) string {
	suffix := ""
	if strings.HasSuffix(strings.TrimSpace(startLine), "-->") {
		suffix = " -->"
	}
	return startLine[:m.column] + EndMarker + suffix
}

// Regenerate rewrites every section of buf. Sections are located afresh on
// each pass because earlier rewrites shift line numbers; a section ordinal,
// not a line number, tracks progress.
//
// Unknown commands and generator failures are reported through the host and
// leave the section untouched. Buffer errors abort.
func (r *Rewriter) Regenerate(ctx context.Context, current note.Note, buf Buffer) error {
	for ordinal := 0; ; ordinal++ {
		lines, err := buf.Lines(ctx)
		if err != nil {
			return fmt.Errorf("autogen: read lines: %w", err)
		}
		starts := findStarts(lines)
		if ordinal >= len(starts) {
			return nil
		}
		m := starts[ordinal]

		end, ok := regionEnd(lines, starts, ordinal)
		if !ok {
			if err := buf.SetLines(ctx, m.line+1, m.line+1, []string{endMarkerFor(lines[m.line], m)}); err != nil {
				return fmt.Errorf("autogen: insert end marker: %w", err)
			}
			end = m.line + 1
		}

		content, err := r.generate(ctx, current, m)
		if err != nil {
			if rerr := r.report(ctx, m, err); rerr != nil {
				return rerr
			}
			continue
		}
		if err := buf.SetLines(ctx, m.line+1, end, content); err != nil {
			return fmt.Errorf("autogen: replace section at line %d: %w", m.line+1, err)
		}
		r.ws.Logger().Debug("autogen: section regenerated",
			slog.String("command", m.command),
			slog.Int("line", m.line+1),
			slog.Int("lines", len(content)),
		)
	}
}

func (r *Rewriter) generate(ctx context.Context, current note.Note, m startMarker) ([]string, error) {
	g, ok := r.generators[m.command]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, m.command)
	}
	return g(ctx, r.ws, current, m.args)
}

func (r *Rewriter) report(ctx context.Context, m startMarker, err error) error {
	msg := fmt.Sprintf("autogenerate section at line %d: %v", m.line+1, err)
	r.ws.Logger().Warn("autogen: section skipped", slog.String("command", m.command), slog.String("error", err.Error()))
	if rerr := r.ws.Host().ReportError(ctx, msg); rerr != nil {
		return fmt.Errorf("autogen: report error: %w", rerr)
	}
	return nil
}
