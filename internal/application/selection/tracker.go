package selection

import (
	"context"
	"sync"
	"time"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker logger.
func WithLogger(logger ports.Logger) Option {
	return func(t *Tracker) {
		t.logger = logging.OrNoOp(logger).With("component", "tracker")
	}
}

// WithClock overrides the timestamp source for activation events.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) {
		if clock != nil {
			t.clock = clock
		}
	}
}

// Tracker holds the plugin currently shown in the content pane. The
// selection always references an enabled plugin; it is cleared silently
// when that plugin is disabled or uninstalled.
type Tracker struct {
	source ports.PluginSource
	bus    ports.EventBus
	logger ports.Logger
	clock  func() time.Time

	mu       sync.RWMutex
	active   *domainplugin.Descriptor
	lastEmit time.Time

	subs []ports.Subscription
}

// NewTracker creates a tracker and subscribes it to disabled and uninstalled
// events on bus.
func NewTracker(source ports.PluginSource, bus ports.EventBus, opts ...Option) *Tracker {
	t := &Tracker{
		source: source,
		bus:    bus,
		logger: logging.NewNoOpLogger(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	if bus != nil {
		t.subs = append(t.subs,
			bus.Subscribe(domainplugin.EventDisabled, t.handleRemoval),
			bus.Subscribe(domainplugin.EventUninstalled, t.handleRemoval),
		)
	}
	return t
}

// SetActive selects d, or clears the selection when d is nil. A non-nil
// plugin must be enabled; the registry's descriptor for its id is stored.
// Explicit changes publish activated/deactivated.
func (t *Tracker) SetActive(ctx context.Context, d *domainplugin.Descriptor) error {
	if d != nil {
		live, err := t.resolve(d.ID)
		if err != nil {
			return err
		}
		d = live
	}

	t.mu.Lock()
	previous := t.active
	if sameID(previous, d) {
		t.mu.Unlock()
		return nil
	}
	t.active = d
	t.mu.Unlock()

	if previous != nil {
		t.publish(ctx, domainplugin.EventDeactivated, previous)
	}
	if d != nil {
		t.publish(ctx, domainplugin.EventActivated, d)
	}
	t.logger.Debug(ctx, "active plugin changed", "plugin_id", idOf(d), "previous", idOf(previous))
	return nil
}

func (t *Tracker) resolve(id string) (*domainplugin.Descriptor, error) {
	if t.source == nil || !t.source.IsEnabled(id) {
		return nil, domainplugin.NewError(domainplugin.ErrCodeNotEnabled, id, "plugin is not enabled", nil)
	}
	live, ok := t.source.Get(id)
	if !ok {
		return nil, domainplugin.NewError(domainplugin.ErrCodeNotEnabled, id, "plugin is not enabled", nil)
	}
	return live, nil
}

// Toggle mirrors a navigation click: selecting the active plugin clears the
// selection, anything else becomes active.
func (t *Tracker) Toggle(ctx context.Context, d *domainplugin.Descriptor) error {
	if d == nil {
		return t.SetActive(ctx, nil)
	}
	if current, ok := t.Active(); ok && current.ID == d.ID {
		return t.SetActive(ctx, nil)
	}
	return t.SetActive(ctx, d)
}

// Active returns the current selection.
func (t *Tracker) Active() (*domainplugin.Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active, t.active != nil
}

// ActiveID returns the id of the current selection, or "".
func (t *Tracker) ActiveID() string {
	active, _ := t.Active()
	return idOf(active)
}

// Close releases the bus subscriptions.
func (t *Tracker) Close() {
	for _, sub := range t.subs {
		sub.Unsubscribe()
	}
	t.subs = nil
}

func (t *Tracker) handleRemoval(ctx context.Context, evt domainplugin.Event) error {
	t.mu.Lock()
	cleared := t.active != nil && t.active.ID == evt.PluginID
	if cleared {
		t.active = nil
	}
	t.mu.Unlock()

	if cleared {
		t.logger.Debug(ctx, "active plugin cleared", "plugin_id", evt.PluginID, "event_type", string(evt.Type))
	}
	return nil
}

func (t *Tracker) publish(ctx context.Context, eventType domainplugin.EventType, d *domainplugin.Descriptor) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(ctx, domainplugin.Event{
		Type:      eventType,
		PluginID:  d.ID,
		Plugin:    d,
		Timestamp: t.now(),
	})
}

func (t *Tracker) now() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts := t.clock()
	if ts.Before(t.lastEmit) {
		ts = t.lastEmit
	}
	t.lastEmit = ts
	return ts
}

func sameID(a, b *domainplugin.Descriptor) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func idOf(d *domainplugin.Descriptor) string {
	if d == nil {
		return ""
	}
	return d.ID
}
