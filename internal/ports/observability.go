package ports

import "context"

// MetricsCollector records quantitative observability signals. Standard
// metric names:
//   - Counters:
//     dashhost_lifecycle_transitions_total{operation="install|...", status="success|rejected|failure"}
//     dashhost_events_total{type="installed|..."}
//   - Gauges:
//     dashhost_plugins{state="registered|installed|enabled"}
//   - Histograms:
//     dashhost_hook_duration_seconds{hook="on_install|..."}
type MetricsCollector interface {
	IncCounter(ctx context.Context, name string, labels map[string]string)
	SetGauge(ctx context.Context, name string, value float64, labels map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string)
}

// Tracer manages tracing spans. Span names follow `<component>.<operation>`
// (e.g. `registry.install`, `manifest.load`).
type Tracer interface {
	StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, Span)
}

// Span represents an active tracing span.
type Span interface {
	SetAttribute(key string, value interface{})
	SetStatus(status SpanStatus, message string)
	End()
}

// SpanStatus provides strongly typed span result semantics.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)
