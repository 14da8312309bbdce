// Package observability provides structured logging and error reporting.
//
// Logger wraps log/slog with service-specific context fields.
// The Sentry helpers report boundary failures when a DSN is configured.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with persistent service context.
// A nil *Logger is valid and discards everything.
type Logger struct {
	inner   *slog.Logger
	service string
}

// LoggerOptions controls handler construction.
type LoggerOptions struct {
	Level  slog.Level
	Format string // "json" (default) or "text"
}

// NewLogger creates a JSON structured logger at DEBUG level for a service.
// Output defaults to os.Stderr if w is nil.
func NewLogger(service string, w io.Writer) *Logger {
	return NewLoggerWithOptions(service, w, LoggerOptions{Level: slog.LevelDebug, Format: "json"})
}

// NewLoggerWithOptions creates a logger with the given level and format.
func NewLoggerWithOptions(service string, w io.Writer, opts LoggerOptions) *Logger {
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	switch opts.Format {
	case "text":
		handler = slog.NewTextHandler(w, hopts)
	default:
		handler = slog.NewJSONHandler(w, hopts)
	}
	return NewLoggerWithHandler(service, handler)
}

// NewLoggerWithHandler creates a logger with a custom slog handler.
func NewLoggerWithHandler(service string, h slog.Handler) *Logger {
	return &Logger{
		inner:   slog.New(h).With(slog.String("service", service)),
		service: service,
	}
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return NewLoggerWithHandler("discard", slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is INFO.
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

// With returns a new Logger with an additional persistent field.
func (l *Logger) With(key string, value any) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		inner:   l.inner.With(slog.Any(key, value)),
		service: l.service,
	}
}

// Debug logs at DEBUG level.
func (l *Logger) Debug(msg string, args ...any) {
	if l != nil {
		l.inner.Debug(msg, args...)
	}
}

// Info logs at INFO level.
func (l *Logger) Info(msg string, args ...any) {
	if l != nil {
		l.inner.Info(msg, args...)
	}
}

// Warn logs at WARN level.
func (l *Logger) Warn(msg string, args ...any) {
	if l != nil {
		l.inner.Warn(msg, args...)
	}
}

// Error logs at ERROR level.
func (l *Logger) Error(msg string, args ...any) {
	if l != nil {
		l.inner.Error(msg, args...)
	}
}

// Step logs a pipeline step event.
func (l *Logger) Step(index, total int, step, msg string, args ...any) {
	if l == nil {
		return
	}
	allArgs := append([]any{
		slog.Int("step_index", index),
		slog.Int("total_steps", total),
		slog.String("step", step),
	}, args...)
	l.inner.Debug(msg, allArgs...)
}

// ProviderCall logs a completed provider call.
func (l *Logger) ProviderCall(provider, op, model string, latencyMs int64, args ...any) {
	if l == nil {
		return
	}
	allArgs := append([]any{
		slog.String("provider", provider),
		slog.String("op", op),
		slog.String("model", model),
		slog.Int64("latency_ms", latencyMs),
	}, args...)
	l.inner.Debug("provider call", allArgs...)
}

// ServiceName returns the service name associated with this logger.
func (l *Logger) ServiceName() string {
	if l == nil {
		return ""
	}
	return l.service
}
