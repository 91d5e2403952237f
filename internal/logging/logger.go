package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type requestIDKey struct{}

// New builds the process logger. level is one of debug, info, warn, error.
func New(w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// WithRequestID stores a request id in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestID extracts the request id from ctx, or "".
func RequestID(ctx context.Context) string {
	if rid, ok := ctx.Value(requestIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides request scoped logging for services and handlers.
type Logger struct {
	base *slog.Logger
}

// NewLogger creates a logger carrying the request id found in ctx.
func NewLogger(ctx context.Context, base *slog.Logger) *Logger {
	if base == nil {
		base = slog.Default()
	}
	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = "unknown"
	}
	return &Logger{base: base.With("request_id", requestID)}
}

// Slog exposes the underlying structured logger.
func (l *Logger) Slog() *slog.Logger { return l.base }

// LogError logs an error with context
func (l *Logger) LogError(operation string, err error) {
	l.base.Error("operation failed", "operation", operation, "error", err)
}

// LogInfo logs an info message with context
func (l *Logger) LogInfo(operation string, message string) {
	l.base.Info(message, "operation", operation)
}

// LogInfof logs a formatted info message with context
func (l *Logger) LogInfof(operation string, format string, args ...any) {
	l.base.Info(fmt.Sprintf(format, args...), "operation", operation)
}

// LogWarn logs a warning with context
func (l *Logger) LogWarn(operation string, message string) {
	l.base.Warn(message, "operation", operation)
}
