// Package log provides helpers for creating a configured slog.Logger.
//
// When a log file path is not provided, logs are written to stdout for
// non-error levels and to stderr for errors (so stderr can be used for
// error redirection while keeping normal logs on stdout).
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace defines a custom slog level below Debug for very verbose
// output such as per-frame sample dumps.
const LevelTrace slog.Level = -8

var levelNames = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a level name to its slog level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	if l, ok := levelNames[s]; ok {
		return l
	}
	return slog.LevelInfo
}

// fanout delivers each record to every handler that wants its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r)
		}
	}
	return nil
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// below caps a handler at levels beneath limit. The wrapped handler's own
// options still set the floor.
type below struct {
	limit slog.Level
	h     slog.Handler
}

func (b below) Enabled(ctx context.Context, level slog.Level) bool {
	return level < b.limit && b.h.Enabled(ctx, level)
}

func (b below) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= b.limit {
		return nil
	}
	return b.h.Handle(ctx, r)
}

func (b below) WithAttrs(attrs []slog.Attr) slog.Handler {
	return below{limit: b.limit, h: b.h.WithAttrs(attrs)}
}

func (b below) WithGroup(name string) slog.Handler {
	return below{limit: b.limit, h: b.h.WithGroup(name)}
}

// SetupLogger builds the process logger. With a file path, text logs go to
// the file and stderr; without one, sub-error records go to stdout and
// errors to stderr. The returned closers own any opened files.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, err
		}
		h := fanout{
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
			slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}),
		}
		return slog.New(h), []io.Closer{f}, nil
	}

	h := fanout{
		below{limit: slog.LevelError, h: slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})},
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	}
	return slog.New(h), nil, nil
}
