package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
)

// Setup returns a context carrying a logger that writes to both stderr and
// logFile. The returned closer closes the log file. An empty logFile logs to
// stderr only.
func Setup(ctx context.Context, logFile string, verbose bool) (context.Context, io.Closer, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return ctx, nil, fmt.Errorf("creating log dir: %w", err)
			}
		}
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return ctx, nil, fmt.Errorf("opening log file: %w", err)
		}
		w = io.MultiWriter(f, os.Stderr)
		closer = f
	}
	logger := clog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return clog.WithLogger(ctx, logger), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
