package common

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ContextKeyRunID      contextKey = "run_id"
	ContextKeySourceFile contextKey = "source_file"
)

// WithRunID tags the context with the id of the batch or CLI run.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithSourceFile records the document being processed.
func WithSourceFile(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, ContextKeySourceFile, path)
}

// SourceFileFromContext extracts the source file from context
func SourceFileFromContext(ctx context.Context) string {
	if path, ok := ctx.Value(ContextKeySourceFile).(string); ok {
		return path
	}
	return ""
}

// LoggerFromContext returns logger enriched with the run and file carried by ctx.
func LoggerFromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if path := SourceFileFromContext(ctx); path != "" {
		logger = logger.With("path", path)
	}
	return logger
}
