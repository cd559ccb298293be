package plugin

import (
	"context"
	"fmt"
	"time"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

const (
	metricTransitions  = "dashhost_lifecycle_transitions_total"
	metricHookDuration = "dashhost_hook_duration_seconds"
	metricPlugins      = "dashhost_plugins"
)

// runHook invokes a lifecycle hook. A returned error or panic is routed to
// the plugin's OnError hook and reported as ErrCodeHookFailed.
func (r *Registry) runHook(ctx context.Context, desc *domainplugin.Descriptor, name string, hook domainplugin.Hook) error {
	if hook == nil {
		return nil
	}

	start := time.Now()
	err := invokeHook(ctx, hook)
	if r.metrics != nil {
		r.metrics.ObserveHistogram(ctx, metricHookDuration, time.Since(start).Seconds(), map[string]string{"hook": name})
	}
	if err == nil {
		return nil
	}

	r.logger.Error(ctx, "lifecycle hook failed",
		"plugin_id", desc.ID,
		"hook", name,
		"error", err,
	)
	r.notifyError(ctx, desc, err)
	return domainplugin.NewError(domainplugin.ErrCodeHookFailed, desc.ID, name+" hook failed", err)
}

func invokeHook(ctx context.Context, hook domainplugin.Hook) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("hook panic: %v", rec)
		}
	}()
	return hook(ctx)
}

func (r *Registry) notifyError(ctx context.Context, desc *domainplugin.Descriptor, cause error) {
	onError := desc.Lifecycle.OnError
	if onError == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "on_error hook panicked",
				"plugin_id", desc.ID,
				"panic", fmt.Sprint(rec),
			)
		}
	}()
	onError(ctx, cause)
}

func (r *Registry) startSpan(ctx context.Context, operation, id string) (context.Context, ports.Span) {
	if r.tracer == nil {
		return ctx, nil
	}
	return r.tracer.StartSpan(ctx, "registry."+operation, "plugin_id", id)
}

// record closes the span and emits the transition counter and log entry.
func (r *Registry) record(ctx context.Context, span ports.Span, operation, id string, err error) {
	status := transitionStatus(err)

	if span != nil {
		if err != nil {
			span.SetAttribute("error_code", string(domainplugin.CodeOf(err)))
			span.SetStatus(ports.SpanStatusError, err.Error())
		} else {
			span.SetStatus(ports.SpanStatusOK, "")
		}
		span.End()
	}

	if r.metrics != nil {
		r.metrics.IncCounter(ctx, metricTransitions, map[string]string{
			"operation": operation,
			"status":    status,
		})
	}

	switch status {
	case "success":
		r.logger.Info(ctx, "lifecycle transition", "operation", operation, "plugin_id", id)
	case "rejected":
		r.logger.Debug(ctx, "lifecycle transition rejected",
			"operation", operation,
			"plugin_id", id,
			"error_code", string(domainplugin.CodeOf(err)),
		)
	default:
		r.logger.Warn(ctx, "lifecycle transition failed",
			"operation", operation,
			"plugin_id", id,
			"error", err,
		)
	}
}

func transitionStatus(err error) string {
	switch domainplugin.CodeOf(err) {
	case "":
		if err == nil {
			return "success"
		}
		return "failure"
	case domainplugin.ErrCodeHookFailed, domainplugin.ErrCodeInternal:
		return "failure"
	default:
		return "rejected"
	}
}

func (r *Registry) updateGauges(ctx context.Context) {
	if r.metrics == nil {
		return
	}
	counts := map[domainplugin.State]int{}
	r.mu.RLock()
	for _, e := range r.entries {
		counts[e.state]++
	}
	r.mu.RUnlock()

	for _, state := range []domainplugin.State{
		domainplugin.StateRegistered,
		domainplugin.StateInstalled,
		domainplugin.StateEnabled,
	} {
		r.metrics.SetGauge(ctx, metricPlugins, float64(counts[state]), map[string]string{"state": state.String()})
	}
}
