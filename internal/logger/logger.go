// Package logger is the process-wide log. Everything goes through one
// slog.Logger writing "[LEVEL] message key=value" lines to stderr.
//
// Only errors are printed by default; --verbose lowers the level to debug.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// LevelTiming sits between debug and info.
const LevelTiming = slog.Level(-2)

var (
	mu    sync.Mutex // guards out
	out   io.Writer  = os.Stderr
	level slog.LevelVar
	std   = slog.New(&lineHandler{})
)

func init() {
	level.Set(slog.LevelError)
}

func SetVerbose(v bool) {
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelError)
	}
}

func IsVerbose() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput redirects the log, for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// Default returns the logger for structured calls.
func Default() *slog.Logger {
	return std
}

func logf(l slog.Level, format string, args ...any) {
	ctx := context.Background()
	if std.Enabled(ctx, l) {
		std.Log(ctx, l, fmt.Sprintf(format, args...))
	}
}

func Debug(format string, args ...any) { logf(slog.LevelDebug, format, args...) }

func Info(format string, args ...any) { logf(slog.LevelInfo, format, args...) }

func Warn(format string, args ...any) { logf(slog.LevelWarn, format, args...) }

// Error is printed whether or not verbose mode is on.
func Error(format string, args ...any) { logf(slog.LevelError, format, args...) }

// Timing reports how long a named stage took.
func Timing(stage string, d time.Duration) {
	logf(LevelTiming, "%s: %.3fs", stage, d.Seconds())
}

func write(s string) error {
	mu.Lock()
	defer mu.Unlock()
	_, err := io.WriteString(out, s)
	return err
}

type lineHandler struct {
	attrs []slog.Attr
}

func (h *lineHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= level.Level()
}

func (h *lineHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString("[" + levelName(r.Level) + "] " + r.Message)
	add := func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		return true
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(add)
	b.WriteByte('\n')
	return write(b.String())
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lineHandler{attrs: append(slices.Clip(h.attrs), attrs...)}
}

// WithGroup is a no-op: keys are printed unqualified.
func (h *lineHandler) WithGroup(string) slog.Handler {
	return h
}

func levelName(l slog.Level) string {
	switch {
	case l == LevelTiming:
		return "TIME"
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
