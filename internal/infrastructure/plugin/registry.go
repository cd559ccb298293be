package plugin

import (
	"context"
	"strings"
	"sync"
	"time"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Stats summarises registry state.
type Stats struct {
	Total       int `json:"total"`
	Installed   int `json:"installed"`
	Enabled     int `json:"enabled"`
	Disabled    int `json:"disabled"`
	Uninstalled int `json:"uninstalled"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for lifecycle diagnostics.
func WithLogger(logger ports.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.OrNoOp(logger).With("component", "registry")
	}
}

// WithMetrics records transition counters, hook durations and state gauges.
func WithMetrics(metrics ports.MetricsCollector) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithTracer opens one span per lifecycle call.
func WithTracer(tracer ports.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// WithClock overrides the event timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

type entry struct {
	desc  *domainplugin.Descriptor
	state domainplugin.State
}

// Registry implements ports.PluginRegistry. It is the only owner of plugin
// lifecycle state; descriptors are never modified after registration.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    []string
	inflight map[string]struct{}

	bus     ports.EventBus
	logger  ports.Logger
	metrics ports.MetricsCollector
	tracer  ports.Tracer

	clockMu  sync.Mutex
	clock    func() time.Time
	lastEmit time.Time
}

// NewRegistry creates an empty registry that publishes lifecycle events on bus.
func NewRegistry(bus ports.EventBus, opts ...Option) *Registry {
	r := &Registry{
		entries:  make(map[string]*entry),
		inflight: make(map[string]struct{}),
		bus:      bus,
		logger:   logging.NewNoOpLogger(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Register stores a descriptor in the registered state. It emits no event.
func (r *Registry) Register(d *domainplugin.Descriptor) error {
	ctx := context.Background()
	if err := d.Validate(); err != nil {
		id := ""
		if d != nil {
			id = d.ID
		}
		derr := domainplugin.NewError(domainplugin.ErrCodeInvalid, id, "invalid plugin descriptor", err)
		r.record(ctx, nil, "register", id, derr)
		return derr
	}

	r.mu.Lock()
	if _, exists := r.entries[d.ID]; exists {
		r.mu.Unlock()
		derr := domainplugin.NewError(domainplugin.ErrCodeDuplicate, d.ID, "plugin already registered", nil)
		r.record(ctx, nil, "register", d.ID, derr)
		return derr
	}
	r.entries[d.ID] = &entry{desc: d, state: domainplugin.StateRegistered}
	r.order = append(r.order, d.ID)
	r.mu.Unlock()

	r.updateGauges(ctx)
	r.record(ctx, nil, "register", d.ID, nil)
	return nil
}

// Unregister removes a plugin, uninstalling it first when installed. When
// the cascade fails the descriptor stays registered.
func (r *Registry) Unregister(ctx context.Context, id string) error {
	return r.run(ctx, "unregister", id, func(ctx context.Context) error {
		state, ok := r.State(id)
		if !ok {
			return notFound(id)
		}
		if state.Installed() {
			if err := r.uninstall(ctx, id); err != nil {
				return err
			}
		}

		r.mu.Lock()
		delete(r.entries, id)
		for i, existing := range r.order {
			if existing == id {
				r.order = append(r.order[:i:i], r.order[i+1:]...)
				break
			}
		}
		r.mu.Unlock()

		r.updateGauges(ctx)
		return nil
	})
}

// Install runs the OnInstall hook and marks the plugin installed. Every
// declared dependency must already be installed.
func (r *Registry) Install(ctx context.Context, id string) error {
	return r.run(ctx, "install", id, func(ctx context.Context) error {
		return r.install(ctx, id)
	})
}

// Uninstall disables the plugin when enabled, then runs OnUninstall and
// marks it registered.
func (r *Registry) Uninstall(ctx context.Context, id string) error {
	return r.run(ctx, "uninstall", id, func(ctx context.Context) error {
		return r.uninstall(ctx, id)
	})
}

// Enable runs the OnEnable hook and marks an installed plugin enabled.
func (r *Registry) Enable(ctx context.Context, id string) error {
	return r.run(ctx, "enable", id, func(ctx context.Context) error {
		return r.enable(ctx, id)
	})
}

// Disable runs the OnDisable hook and marks an enabled plugin installed.
func (r *Registry) Disable(ctx context.Context, id string) error {
	return r.run(ctx, "disable", id, func(ctx context.Context) error {
		return r.disable(ctx, id)
	})
}

func (r *Registry) install(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.RUnlock()
		return notFound(id)
	}
	if e.state.Installed() {
		r.mu.RUnlock()
		return domainplugin.NewError(domainplugin.ErrCodeAlreadyInstalled, id, "plugin already installed", nil)
	}
	for _, dep := range e.desc.Config.Dependencies {
		if depEntry, ok := r.entries[dep]; !ok || !depEntry.state.Installed() {
			r.mu.RUnlock()
			return domainplugin.NewDependencyError(id, dep)
		}
	}
	desc := e.desc
	r.mu.RUnlock()

	if err := r.runHook(ctx, desc, "on_install", desc.Lifecycle.OnInstall); err != nil {
		return err
	}
	r.setState(ctx, id, domainplugin.StateInstalled)
	r.publish(ctx, domainplugin.EventInstalled, desc)
	return nil
}

func (r *Registry) uninstall(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.RUnlock()
		return notFound(id)
	}
	state, desc := e.state, e.desc
	dependents := r.installedDependentsLocked(id)
	r.mu.RUnlock()

	if !state.Installed() {
		return domainplugin.NewError(domainplugin.ErrCodeNotInstalled, id, "plugin not installed", nil)
	}
	if state == domainplugin.StateEnabled {
		if err := r.disable(ctx, id); err != nil {
			return err
		}
	}
	if len(dependents) > 0 {
		r.logger.Warn(ctx, "uninstalling plugin with installed dependents",
			"plugin_id", id,
			"dependents", dependents,
		)
	}

	if err := r.runHook(ctx, desc, "on_uninstall", desc.Lifecycle.OnUninstall); err != nil {
		return err
	}
	r.setState(ctx, id, domainplugin.StateRegistered)
	r.publish(ctx, domainplugin.EventUninstalled, desc)
	return nil
}

func (r *Registry) enable(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.RUnlock()
		return notFound(id)
	}
	state, desc := e.state, e.desc
	r.mu.RUnlock()

	switch state {
	case domainplugin.StateRegistered:
		return domainplugin.NewError(domainplugin.ErrCodeNotInstalled, id, "plugin not installed", nil)
	case domainplugin.StateEnabled:
		return domainplugin.NewError(domainplugin.ErrCodeAlreadyEnabled, id, "plugin already enabled", nil)
	}

	if err := r.runHook(ctx, desc, "on_enable", desc.Lifecycle.OnEnable); err != nil {
		return err
	}
	r.setState(ctx, id, domainplugin.StateEnabled)
	r.publish(ctx, domainplugin.EventEnabled, desc)
	return nil
}

func (r *Registry) disable(ctx context.Context, id string) error {
	r.mu.RLock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.RUnlock()
		return notFound(id)
	}
	state, desc := e.state, e.desc
	r.mu.RUnlock()

	if state != domainplugin.StateEnabled {
		return domainplugin.NewError(domainplugin.ErrCodeAlreadyDisabled, id, "plugin already disabled", nil)
	}

	if err := r.runHook(ctx, desc, "on_disable", desc.Lifecycle.OnDisable); err != nil {
		return err
	}
	r.setState(ctx, id, domainplugin.StateInstalled)
	r.publish(ctx, domainplugin.EventDisabled, desc)
	return nil
}

// Get returns the live descriptor for id.
func (r *Registry) Get(id string) (*domainplugin.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.desc, true
}

// State returns the lifecycle state for id.
func (r *Registry) State(id string) (domainplugin.State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return domainplugin.StateRegistered, false
	}
	return e.state, true
}

// List returns every registered descriptor in registration order.
func (r *Registry) List() []*domainplugin.Descriptor {
	return r.filter(func(*entry) bool { return true })
}

// ListInstalled returns installed (including enabled) descriptors.
func (r *Registry) ListInstalled() []*domainplugin.Descriptor {
	return r.filter(func(e *entry) bool { return e.state.Installed() })
}

// ListEnabled returns enabled descriptors.
func (r *Registry) ListEnabled() []*domainplugin.Descriptor {
	return r.filter(func(e *entry) bool { return e.state == domainplugin.StateEnabled })
}

// ListByCategory returns descriptors whose category matches, ignoring case.
func (r *Registry) ListByCategory(category string) []*domainplugin.Descriptor {
	return r.filter(func(e *entry) bool { return strings.EqualFold(e.desc.Category, category) })
}

// Search returns descriptors whose name, description or author contains query.
func (r *Registry) Search(query string) []*domainplugin.Descriptor {
	return r.filter(func(e *entry) bool { return e.desc.Matches(query) })
}

// IsInstalled reports whether id is installed. Unknown ids are not.
func (r *Registry) IsInstalled(id string) bool {
	state, ok := r.State(id)
	return ok && state.Installed()
}

// IsEnabled reports whether id is enabled. Unknown ids are not.
func (r *Registry) IsEnabled(id string) bool {
	state, ok := r.State(id)
	return ok && state == domainplugin.StateEnabled
}

// Stats counts plugins per lifecycle state.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{Total: len(r.entries)}
	for _, e := range r.entries {
		switch e.state {
		case domainplugin.StateEnabled:
			stats.Installed++
			stats.Enabled++
		case domainplugin.StateInstalled:
			stats.Installed++
			stats.Disabled++
		default:
			stats.Uninstalled++
		}
	}
	return stats
}

func (r *Registry) filter(keep func(*entry) bool) []*domainplugin.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domainplugin.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		if e := r.entries[id]; keep(e) {
			result = append(result, e.desc)
		}
	}
	return result
}

func (r *Registry) installedDependentsLocked(id string) []string {
	var dependents []string
	for _, other := range r.order {
		e := r.entries[other]
		if e.state.Installed() && e.desc.HasDependency(id) {
			dependents = append(dependents, other)
		}
	}
	return dependents
}

// acquire marks id as in flight. Overlapping lifecycle calls on one id are
// rejected with ErrCodeBusy.
func (r *Registry) acquire(id string) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; !ok {
		return nil, notFound(id)
	}
	if _, busy := r.inflight[id]; busy {
		return nil, domainplugin.NewError(domainplugin.ErrCodeBusy, id, "lifecycle operation already in progress", nil)
	}
	r.inflight[id] = struct{}{}
	return func() {
		r.mu.Lock()
		delete(r.inflight, id)
		r.mu.Unlock()
	}, nil
}

func (r *Registry) run(ctx context.Context, operation, id string, fn func(context.Context) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := r.startSpan(ctx, operation, id)
	defer func() {
		r.record(ctx, span, operation, id, err)
	}()

	release, err := r.acquire(id)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

func (r *Registry) setState(ctx context.Context, id string, state domainplugin.State) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.state = state
	}
	r.mu.Unlock()
	r.updateGauges(ctx)
}

func (r *Registry) publish(ctx context.Context, eventType domainplugin.EventType, desc *domainplugin.Descriptor) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(ctx, domainplugin.Event{
		Type:      eventType,
		PluginID:  desc.ID,
		Plugin:    desc,
		Timestamp: r.now(),
	})
}

// now returns the clock time clamped to the last emitted timestamp.
func (r *Registry) now() time.Time {
	r.clockMu.Lock()
	defer r.clockMu.Unlock()

	ts := r.clock()
	if ts.Before(r.lastEmit) {
		ts = r.lastEmit
	}
	r.lastEmit = ts
	return ts
}

func notFound(id string) error {
	return domainplugin.NewError(domainplugin.ErrCodeNotFound, id, "plugin not registered", nil)
}

var _ ports.PluginRegistry = (*Registry)(nil)
