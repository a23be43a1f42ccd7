// Package logging builds the per-bot logger: a console handler and an optional
// file handler with independent levels, created when a bot starts and released
// when it stops.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Options configures a Log.
type Options struct {
	// Name tags every record with bot=<Name>.
	Name string
	// ConsoleLevel is the minimum level written to Console.
	ConsoleLevel slog.Level
	// FileLevel is the minimum level written to FilePath.
	FileLevel slog.Level
	// FilePath enables JSON file output when non-empty.
	FilePath string
	// Console defaults to os.Stderr.
	Console io.Writer
	// Tail, when set, also receives console-level records as text.
	Tail *Ring
}

// Log owns a logger and the file behind it.
type Log struct {
	*slog.Logger
	file   *os.File
	closed atomic.Bool
	once   sync.Once
}

// New opens the log file (if any) and builds the fan-out logger.
func New(opts Options) (*Log, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(console, &slog.HandlerOptions{Level: opts.ConsoleLevel}),
	}

	if opts.Tail != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Tail, &slog.HandlerOptions{Level: opts.ConsoleLevel}))
	}

	var file *os.File
	if opts.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.FileLevel}))
	}

	logger := slog.New(fanout(handlers))
	if opts.Name != "" {
		logger = logger.With("bot", opts.Name)
	}
	return &Log{Logger: logger, file: file}, nil
}

// Close releases the file.
func (l *Log) Close() error {
	var err error
	l.once.Do(func() {
		l.closed.Store(true)
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

// Closed reports whether Close has been called.
func (l *Log) Closed() bool {
	return l.closed.Load()
}

// ParseLevel parses debug|info|warn|error (case-insensitive).
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug", "trace":
		return slog.LevelDebug, nil
	case "info", "success", "interface":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", raw)
	}
}

// multiHandler sends each record to every handler that accepts its level.
type multiHandler []slog.Handler

func fanout(hs []slog.Handler) slog.Handler {
	if len(hs) == 1 {
		return hs[0]
	}
	return multiHandler(hs)
}

func (m multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (m multiHandler) WithGroup(name string) slog.Handler {
	out := make(multiHandler, len(m))
	for i, h := range m {
		out[i] = h.WithGroup(name)
	}
	return out
}
