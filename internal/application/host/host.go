package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexisbeaulieu97/dashhost/internal/application/navigation"
	"github.com/alexisbeaulieu97/dashhost/internal/application/selection"
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	registryinfra "github.com/alexisbeaulieu97/dashhost/internal/infrastructure/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Options wires the host's collaborators. Every field is optional.
type Options struct {
	Logger  ports.Logger
	Metrics ports.MetricsCollector
	Tracer  ports.Tracer
	Clock   func() time.Time
}

// Host owns one plugin registry together with its bus, active selection and
// navigation projection. Several hosts can coexist in one process.
type Host struct {
	logger     ports.Logger
	bus        *events.Bus
	registry   *registryinfra.Registry
	tracker    *selection.Tracker
	projection *navigation.Projection
}

// New constructs an empty host.
func New(opts Options) *Host {
	logger := logging.OrNoOp(opts.Logger)
	bus := events.NewBus(logger)
	registry := registryinfra.NewRegistry(bus,
		registryinfra.WithLogger(logger),
		registryinfra.WithMetrics(opts.Metrics),
		registryinfra.WithTracer(opts.Tracer),
		registryinfra.WithClock(opts.Clock),
	)
	return &Host{
		logger:     logger.With("component", "host"),
		bus:        bus,
		registry:   registry,
		tracker:    selection.NewTracker(registry, bus, selection.WithLogger(logger), selection.WithClock(opts.Clock)),
		projection: navigation.NewProjection(registry, bus),
	}
}

// Bus returns the lifecycle event bus.
func (h *Host) Bus() *events.Bus { return h.bus }

// Registry returns the plugin registry.
func (h *Host) Registry() *registryinfra.Registry { return h.registry }

// Tracker returns the active-selection tracker.
func (h *Host) Tracker() *selection.Tracker { return h.tracker }

// Projection returns the navigation projection.
func (h *Host) Projection() *navigation.Projection { return h.projection }

// Bootstrap registers descriptors, installs them in dependency order and
// enables those that ask for it. A failing plugin does not stop the others;
// all failures are joined into the returned error.
func (h *Host) Bootstrap(ctx context.Context, descriptors []*domainplugin.Descriptor) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.logger.Info(ctx, "bootstrapping plugins", "count", len(descriptors))

	var errs []error
	registered := make([]*domainplugin.Descriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if err := h.registry.Register(d); err != nil {
			errs = append(errs, err)
			continue
		}
		registered = append(registered, d)
	}

	if err := h.registry.ValidateDependencies(); err != nil {
		h.logger.Warn(ctx, "plugin dependency graph invalid", "error", err)
		errs = append(errs, err)
	}

	errs = append(errs, h.activate(ctx, registered)...)

	if len(errs) > 0 {
		err := errors.Join(errs...)
		h.logger.Warn(ctx, "bootstrap completed with errors", "failures", len(errs))
		return fmt.Errorf("bootstrap plugins: %w", err)
	}
	h.logger.Info(ctx, "bootstrap complete", "plugins", len(registered))
	return nil
}

// Reconcile applies a reloaded descriptor set: vanished ids are unregistered
// (uninstalling them first) and new ids are bootstrapped. Ids present in
// both sets keep their current descriptor and state.
func (h *Host) Reconcile(ctx context.Context, descriptors []*domainplugin.Descriptor) error {
	if ctx == nil {
		ctx = context.Background()
	}

	wanted := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d != nil {
			wanted[d.ID] = true
		}
	}

	var errs []error
	current := h.registry.List()
	for i := len(current) - 1; i >= 0; i-- {
		id := current[i].ID
		if wanted[id] {
			continue
		}
		if err := h.registry.Unregister(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		h.logger.Info(ctx, "plugin removed", "plugin_id", id)
	}

	added := make([]*domainplugin.Descriptor, 0)
	for _, d := range descriptors {
		if d == nil {
			continue
		}
		if _, exists := h.registry.Get(d.ID); exists {
			continue
		}
		if err := h.registry.Register(d); err != nil {
			errs = append(errs, err)
			continue
		}
		added = append(added, d)
		h.logger.Info(ctx, "plugin added", "plugin_id", d.ID)
	}
	errs = append(errs, h.activate(ctx, added)...)

	if len(errs) > 0 {
		return fmt.Errorf("reconcile plugins: %w", errors.Join(errs...))
	}
	return nil
}

// Close releases the tracker and projection subscriptions.
func (h *Host) Close() {
	h.tracker.Close()
	h.projection.Close()
}

// activate installs descriptors in dependency order and enables the ones
// configured for startup. Dependents of a failed install are reported with
// their own dependency error.
func (h *Host) activate(ctx context.Context, descriptors []*domainplugin.Descriptor) []error {
	if len(descriptors) == 0 {
		return nil
	}
	ids := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		ids = append(ids, d.ID)
	}

	order, err := h.registry.InstallOrder(ids)
	if err != nil {
		// Cycles or unknown dependencies: fall back to registration order
		// and let Install report each unmet dependency.
		order = ids
	}

	var errs []error
	for _, id := range order {
		if err := h.registry.Install(ctx, id); err != nil && !domainplugin.IsRejection(err) {
			errs = append(errs, err)
			continue
		}
		d, _ := h.registry.Get(id)
		if d == nil || !d.Config.Enabled {
			continue
		}
		if err := h.registry.Enable(ctx, id); err != nil && !domainplugin.IsRejection(err) {
			errs = append(errs, err)
		}
	}
	return errs
}
