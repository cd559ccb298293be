package ports

import (
	"context"

	"github.com/google/uuid"
)

// Logger defines dashhost's structured logging contract. All log calls take
// key/value pairs, must be safe for concurrent use, and should enrich entries
// with the correlation ID carried by ctx. Common fields:
//   - correlation_id (UUIDv4, generated at CLI entry point)
//   - layer (domain|application|infrastructure)
//   - component (registry, bus, tracker, loader, ...)
//   - plugin_id / event_type / operation
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type correlationIDKey struct{}

// WithCorrelationID attaches the provided correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// GetCorrelationID extracts a correlation ID from context, or "" when none is set.
func GetCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

// GenerateCorrelationID produces a new UUIDv4 string for log correlation.
func GenerateCorrelationID() string {
	return uuid.NewString()
}
