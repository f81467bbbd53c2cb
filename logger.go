package kdgo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/kdgo/kdtree"
)

// Logger wraps slog.Logger with kdgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// WithStrategy adds a strategy field to the logger.
func (l *Logger) WithStrategy(s kdtree.Strategy) *Logger {
	return &Logger{
		Logger: l.Logger.With("strategy", s.String()),
	}
}

// LogBuild logs an index build.
func (l *Logger) LogBuild(ctx context.Context, points, dimension int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"dimension", dimension,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"points", points,
			"dimension", dimension,
		)
	}
}

// LogBatch logs a batch query operation.
func (l *Logger) LogBatch(ctx context.Context, queries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch query failed",
			"queries", queries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch query completed",
			"queries", queries,
		)
	}
}

// LogSnapshotSave logs a snapshot save operation.
func (l *Logger) LogSnapshotSave(ctx context.Context, dest string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot save failed",
			"dest", dest,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"dest", dest,
		)
	}
}

// LogSnapshotLoad logs a snapshot load operation.
func (l *Logger) LogSnapshotLoad(ctx context.Context, src string, points int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot load failed",
			"src", src,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot loaded",
			"src", src,
			"points", points,
		)
	}
}
