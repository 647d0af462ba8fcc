package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
)

// Logger wraps slog for structured logging
type Logger struct {
	*slog.Logger
}

// secretPatterns matches attribute keys whose values must never be logged.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i).*_token$`),
	regexp.MustCompile(`(?i).*secret.*`),
	regexp.MustCompile(`(?i).*password.*`),
}

// New creates a new logger with the specified level and format
func New(level, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture output.
func NewWithWriter(w io.Writer, level, format string) *Logger {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: redactSecrets,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// ctxKey is the context key for request-scoped loggers. One shared key so
// every layer retrieves the logger the transport stored.
type ctxKey struct{}

// NewContext returns a context carrying l.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger carried by ctx, if any.
func FromContext(ctx context.Context) (*Logger, bool) {
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	return l, ok
}

// With creates a child logger with additional fields
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// parseLevel converts string level to slog.Level
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactSecrets replaces values of secret-looking attributes.
func redactSecrets(groups []string, a slog.Attr) slog.Attr {
	for _, pattern := range secretPatterns {
		if pattern.MatchString(a.Key) {
			a.Value = slog.StringValue("***REDACTED***")
			return a
		}
	}
	return a
}
