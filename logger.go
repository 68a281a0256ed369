package icemeta

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with icemeta-specific context.
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

// WithLocation adds the table location to the logger.
func (l *Logger) WithLocation(location string) *Logger {
	return &Logger{
		Logger: l.Logger.With("location", location),
	}
}

// WithSnapshot adds a snapshot ID field to the logger.
func (l *Logger) WithSnapshot(id int64) *Logger {
	return &Logger{
		Logger: l.Logger.With("snapshot_id", id),
	}
}

// WithManifest adds a manifest path field to the logger.
func (l *Logger) WithManifest(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("manifest", path),
	}
}

// LogRewrite logs a manifest rewrite pass.
func (l *Logger) LogRewrite(ctx context.Context, result *RewriteResult, err error) {
	if err != nil {
		l.ErrorContext(ctx, "manifest rewrite failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "manifest rewrite completed",
		"manifest_list", result.ManifestListPath,
		"manifests", len(result.Manifests),
		"carried", result.CarriedManifests,
		"data_files", result.DataFiles,
		"indexes", result.Indexes,
		"deletion_vectors", result.DeletionVectors,
		"removed_entries", result.RemovedEntries,
	)
}

// LogManifestCarried logs a manifest re-added without rewriting.
func (l *Logger) LogManifestCarried(ctx context.Context, path string) {
	l.DebugContext(ctx, "manifest carried over",
		"manifest", path,
	)
}

// LogManifestRewritten logs the per-manifest keep/drop outcome.
func (l *Logger) LogManifestRewritten(ctx context.Context, path string, kept, dropped int) {
	l.DebugContext(ctx, "manifest rewritten",
		"manifest", path,
		"kept", kept,
		"dropped", dropped,
	)
}
