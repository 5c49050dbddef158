// Package appcore carries request-scoped values shared by the application layer.
package appcore

import (
	"context"
	"log/slog"
)

// Context keys
type contextKey string

const (
	correlationIDKey contextKey = "correlationID"
	actorIDKey       contextKey = "actorID"
)

// WithCorrelationID adds the correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationID extracts the correlation ID from the context, or "" when unset
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// WithActorID adds the acting member's ID to the context
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// ActorID extracts the acting member's ID from the context, or "" when unset
func ActorID(ctx context.Context) string {
	id, _ := ctx.Value(actorIDKey).(string)
	return id
}

// LogAttrs returns the request-scoped attributes every log line of a command
// execution should carry.
func LogAttrs(ctx context.Context) []slog.Attr {
	attrs := make([]slog.Attr, 0, 2)
	if id := CorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := ActorID(ctx); id != "" {
		attrs = append(attrs, slog.String("actor_id", id))
	}
	return attrs
}
