// ABOUTME: Structured logging setup on slog with a clog console handler
// ABOUTME: Carries loggers through context and reports goerr values and stacks
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
)

type ctxKey struct{}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Options controls handler construction
type Options struct {
	Level  string
	Format string // console or json
	Writer io.Writer
	Color  bool
	Source bool
}

// ParseLevel maps a level name to slog.Level, defaulting to info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger for the given options
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = io.Discard
	}
	level := ParseLevel(opts.Level)

	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: opts.Source,
		}))
	}

	return slog.New(clog.New(
		clog.WithWriter(w),
		clog.WithLevel(level),
		clog.WithColor(opts.Color),
		clog.WithSource(opts.Source),
	))
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process-wide logger
func SetDefault(l *slog.Logger) {
	if l != nil {
		defaultLogger.Store(l)
	}
}

// With returns a context carrying l
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger in ctx, or the default logger
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// ErrorAttrs flattens a goerr chain into log attributes
func ErrorAttrs(err error) []any {
	if err == nil {
		return nil
	}
	attrs := []any{slog.String("error", err.Error())}

	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs,
			slog.Any("values", ge.Values()),
			slog.Any("stack", ge.Stacks()),
		)
	}
	return attrs
}

// HandleError logs err with its goerr context at error level
func HandleError(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}
	From(ctx).Error(msg, ErrorAttrs(err)...)
}
