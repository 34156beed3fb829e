package services

import "context"

type contextKey string

const (
	itemKeyContextKey contextKey = "lectern.item_key"
	stageContextKey   contextKey = "lectern.stage"
	runIDContextKey   contextKey = "lectern.run_id"
)

// WithItemKey stores the work item identity on the context.
func WithItemKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, itemKeyContextKey, key)
}

// ItemKeyFromContext returns the work item identity when present.
func ItemKeyFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	key, ok := ctx.Value(itemKeyContextKey).(string)
	return key, ok && key != ""
}

// WithStage stores the active stage name on the context.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageContextKey, stage)
}

// StageFromContext returns the active stage name when present.
func StageFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	stage, ok := ctx.Value(stageContextKey).(string)
	return stage, ok && stage != ""
}

// WithRunID stores the orchestrator run identifier on the context.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDContextKey, id)
}

// RunIDFromContext returns the orchestrator run identifier when present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDContextKey).(string)
	return id, ok && id != ""
}
