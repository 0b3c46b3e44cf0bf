package headless

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/peterh/liner"

	"github.com/starford/wikiplugin/internal/apperr"
)

// Prompter answers host prompts.
type Prompter interface {
	Prompt(ctx context.Context, message string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, message string) (string, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

// Answers returns a Prompter that replies with answers in order and cancels
// once they run out.
func Answers(answers ...string) Prompter {
	return PrompterFunc(func(context.Context, string) (string, error) {
		if len(answers) == 0 {
			return "", apperr.ErrCancelled
		}
		a := answers[0]
		answers = answers[1:]
		return a, nil
	})
}

// Terminal prompts on the controlling terminal with line editing.
type Terminal struct{}

// Prompt reads one line. Ctrl-C and Ctrl-D cancel the prompt.
func (Terminal) Prompt(_ context.Context, message string) (string, error) {
	l := liner.NewLiner()
	defer l.Close()
	l.SetCtrlCAborts(true)

	answer, err := l.Prompt(message)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", apperr.ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("headless: prompt: %w", err)
	}
	return answer, nil
}
