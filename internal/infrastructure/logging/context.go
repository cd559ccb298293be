package logging

import (
	"context"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// WithCorrelationID stores the provided correlation identifier inside the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return ports.WithCorrelationID(ctx, id)
}

// EnsureCorrelationID returns ctx unchanged when it already carries a
// correlation ID, otherwise a child context with a freshly generated one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if ctx == nil {
		ctx = context.Background()
	}
	if id := ports.GetCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := ports.GenerateCorrelationID()
	return ports.WithCorrelationID(ctx, id), id
}
