package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Metric names recorded by the host.
const (
	LifecycleTransitionsTotal = "dashhost_lifecycle_transitions_total"
	HookDurationSeconds       = "dashhost_hook_duration_seconds"
	Plugins                   = "dashhost_plugins"
	EventsTotal               = "dashhost_events_total"
	HTTPRequestsTotal         = "dashhost_http_requests_total"
	HTTPRequestDuration       = "dashhost_http_request_duration_seconds"
)

// Prometheus implements ports.MetricsCollector over a fixed set of vectors
// registered on a caller-supplied registry.
type Prometheus struct {
	LifecycleTransitions *prometheus.CounterVec
	HookDuration         *prometheus.HistogramVec
	PluginStates         *prometheus.GaugeVec
	Events               *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec

	gatherer prometheus.Gatherer
	logger   ports.Logger
}

// NewPrometheus creates and registers all dashhost metrics.
func NewPrometheus(registry *prometheus.Registry, logger ports.Logger) *Prometheus {
	p := &Prometheus{
		LifecycleTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: LifecycleTransitionsTotal,
				Help: "Plugin lifecycle calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		HookDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    HookDurationSeconds,
				Help:    "Lifecycle hook duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"hook"},
		),
		PluginStates: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: Plugins,
				Help: "Number of plugins per lifecycle state",
			},
			[]string{"state"},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: EventsTotal,
				Help: "Lifecycle events published on the bus",
			},
			[]string{"type"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: HTTPRequestsTotal,
				Help: "Admin API requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    HTTPRequestDuration,
				Help:    "Admin API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		gatherer: registry,
		logger:   logging.OrNoOp(logger).With("component", "metrics"),
	}

	registry.MustRegister(
		p.LifecycleTransitions,
		p.HookDuration,
		p.PluginStates,
		p.Events,
		p.HTTPRequests,
		p.HTTPDuration,
	)
	return p
}

// IncCounter implements ports.MetricsCollector.
func (p *Prometheus) IncCounter(ctx context.Context, name string, labels map[string]string) {
	var vec *prometheus.CounterVec
	switch name {
	case LifecycleTransitionsTotal:
		vec = p.LifecycleTransitions
	case EventsTotal:
		vec = p.Events
	case HTTPRequestsTotal:
		vec = p.HTTPRequests
	default:
		p.unknown(ctx, name)
		return
	}
	counter, err := vec.GetMetricWith(labels)
	if err != nil {
		p.labelError(ctx, name, err)
		return
	}
	counter.Inc()
}

// SetGauge implements ports.MetricsCollector.
func (p *Prometheus) SetGauge(ctx context.Context, name string, value float64, labels map[string]string) {
	if name != Plugins {
		p.unknown(ctx, name)
		return
	}
	gauge, err := p.PluginStates.GetMetricWith(labels)
	if err != nil {
		p.labelError(ctx, name, err)
		return
	}
	gauge.Set(value)
}

// ObserveHistogram implements ports.MetricsCollector.
func (p *Prometheus) ObserveHistogram(ctx context.Context, name string, value float64, labels map[string]string) {
	var vec *prometheus.HistogramVec
	switch name {
	case HookDurationSeconds:
		vec = p.HookDuration
	case HTTPRequestDuration:
		vec = p.HTTPDuration
	default:
		p.unknown(ctx, name)
		return
	}
	observer, err := vec.GetMetricWith(labels)
	if err != nil {
		p.labelError(ctx, name, err)
		return
	}
	observer.Observe(value)
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prometheus) unknown(ctx context.Context, name string) {
	p.logger.Debug(ctx, "unknown metric ignored", "metric", name)
}

func (p *Prometheus) labelError(ctx context.Context, name string, err error) {
	p.logger.Warn(ctx, "metric labels rejected", "metric", name, "error", err)
}

// NewEventCounter counts every bus event in dashhost_events_total.
func NewEventCounter(bus ports.EventBus, collector ports.MetricsCollector) ports.Subscription {
	return bus.SubscribeAll(func(ctx context.Context, evt domainplugin.Event) error {
		collector.IncCounter(ctx, EventsTotal, map[string]string{"type": string(evt.Type)})
		return nil
	})
}

var _ ports.MetricsCollector = (*Prometheus)(nil)
