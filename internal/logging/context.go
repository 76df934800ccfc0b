package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies a single generation or comparison run.
	FieldRunID = "run_id"
	// FieldStage is the standardized key for the pipeline stage.
	FieldStage = "stage"
	// FieldCardID identifies a catalog card.
	FieldCardID = "card_id"
	// FieldSide is the card face label ("front", "back").
	FieldSide = "side"
	// FieldHashFunction is the id of a hash function identity.
	FieldHashFunction = "hash_function"
	// FieldImagePath is the image being processed.
	FieldImagePath = "image_path"
	// FieldEventType categorizes warnings and errors for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to do next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldProgressPercent is the completion percentage of a long-running stage.
	FieldProgressPercent = "progress_percent"
	// FieldProgressETA is the estimated time remaining.
	FieldProgressETA = "progress_eta"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)

type contextKey int

const (
	runIDKey contextKey = iota
	stageKey
)

// WithRunID returns a context carrying the run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, runID)
}

// RunIDFromContext returns the run identifier stored in ctx, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(runIDKey).(string)
	return v, ok && v != ""
}

// WithStage returns a context carrying the pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the pipeline stage stored in ctx, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(stageKey).(string)
	return v, ok && v != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
