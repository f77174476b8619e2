package services

import "context"

type contextKey string

const (
	runIDKey    contextKey = "run_id"
	positionKey contextKey = "position"
	sourceKey   contextKey = "source"
)

// WithRunID annotates context with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPosition annotates context with the input position of the item being processed.
func WithPosition(ctx context.Context, position int) context.Context {
	return context.WithValue(ctx, positionKey, position)
}

// PositionFromContext extracts the input position if present.
func PositionFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(positionKey).(int)
	return v, ok
}

// WithSource annotates context with the status source name.
func WithSource(ctx context.Context, source string) context.Context {
	if source == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceKey, source)
}

// SourceFromContext returns the status source name if present.
func SourceFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
