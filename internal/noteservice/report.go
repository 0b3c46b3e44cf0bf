package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/wikiplugin/internal/apperr"
	"github.com/starford/wikiplugin/internal/host"
)

// FormatError renders err followed by its chain of causes, innermost last.
func FormatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "error: %v\n", err)
	for cause := errors.Unwrap(err); cause != nil; cause = errors.Unwrap(cause) {
		fmt.Fprintf(&b, "caused by '%v'\n", cause)
	}
	return b.String()
}

// Report logs err and shows it to the user through h. Cancellations are
// logged only.
func (s *Service) Report(ctx context.Context, h host.Host, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, apperr.ErrCancelled) {
		s.logger.Info("noteservice: operation cancelled")
		return
	}
	s.logger.Error("noteservice: operation failed", slog.String("error", err.Error()))
	if rerr := h.ReportError(ctx, FormatError(err)); rerr != nil {
		s.logger.Error("noteservice: report error", slog.String("error", rerr.Error()))
	}
}
