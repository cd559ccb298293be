// Package tracing adapts OpenTelemetry to the ports.Tracer contract and sets
// up OTLP export for the serve command.
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// InstrumentationName identifies dashhost spans.
const InstrumentationName = "github.com/alexisbeaulieu97/dashhost"

// OTel implements ports.Tracer on an OpenTelemetry tracer.
type OTel struct {
	tracer trace.Tracer
}

// New wraps tracer. A nil tracer falls back to the global provider.
func New(tracer trace.Tracer) *OTel {
	if tracer == nil {
		tracer = otel.Tracer(InstrumentationName)
	}
	return &OTel{tracer: tracer}
}

// StartSpan implements ports.Tracer. attributes are key/value pairs.
func (o *OTel) StartSpan(ctx context.Context, name string, attributes ...interface{}) (context.Context, ports.Span) {
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(toAttributes(attributes)...))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	s.span.SetAttributes(toAttribute(key, value))
}

func (s *otelSpan) SetStatus(status ports.SpanStatus, message string) {
	if status == ports.SpanStatusError {
		s.span.SetStatus(codes.Error, message)
		return
	}
	s.span.SetStatus(codes.Ok, message)
}

func (s *otelSpan) End() {
	s.span.End()
}

func toAttributes(pairs []interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			continue
		}
		attrs = append(attrs, toAttribute(key, pairs[i+1]))
	}
	return attrs
}

func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

// ExporterConfig configures OTLP gRPC export.
type ExporterConfig struct {
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	BatchTimeout   time.Duration
}

// NewProvider builds a tracer provider exporting to cfg.Endpoint and installs
// it as the global provider. Callers must Shutdown the provider on exit.
func NewProvider(ctx context.Context, cfg ExporterConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 5 * time.Second
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(batchTimeout)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

var _ ports.Tracer = (*OTel)(nil)
