package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/events"
	registryinfra "github.com/alexisbeaulieu97/dashhost/internal/infrastructure/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *OTel) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return recorder, New(provider.Tracer(InstrumentationName))
}

func TestStartSpanRecordsAttributesAndStatus(t *testing.T) {
	t.Parallel()

	recorder, tracer := newRecorder(t)

	_, span := tracer.StartSpan(context.Background(), "manifest.load", "path", "plugins.yaml", "count", 3, "dangling")
	span.SetAttribute("valid", true)
	span.SetStatus(ports.SpanStatusError, "boom")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "manifest.load", ended[0].Name())
	require.Equal(t, codes.Error, ended[0].Status().Code)
	require.Equal(t, "boom", ended[0].Status().Description)
	require.ElementsMatch(t, []attribute.KeyValue{
		attribute.String("path", "plugins.yaml"),
		attribute.Int("count", 3),
		attribute.Bool("valid", true),
	}, ended[0].Attributes())
}

func TestRegistrySpans(t *testing.T) {
	t.Parallel()

	recorder, tracer := newRecorder(t)
	registry := registryinfra.NewRegistry(events.NewBus(nil), registryinfra.WithTracer(tracer))
	ctx := context.Background()

	require.NoError(t, registry.Register(&domainplugin.Descriptor{ID: "a", Name: "a"}))
	require.NoError(t, registry.Install(ctx, "a"))
	require.Error(t, registry.Enable(ctx, "missing"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	require.Equal(t, "registry.install", ended[0].Name())
	require.Equal(t, codes.Ok, ended[0].Status().Code)
	require.Contains(t, ended[0].Attributes(), attribute.String("plugin_id", "a"))
	require.Equal(t, "registry.enable", ended[1].Name())
	require.Equal(t, codes.Error, ended[1].Status().Code)
}

func TestToAttributeFallsBackToString(t *testing.T) {
	t.Parallel()

	require.Equal(t, attribute.String("state", "enabled"), toAttribute("state", domainplugin.StateEnabled))
	require.Equal(t, attribute.String("code", "BUSY"), toAttribute("code", domainplugin.ErrCodeBusy))
}
