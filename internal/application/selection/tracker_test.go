package selection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/events"
	registryinfra "github.com/alexisbeaulieu97/dashhost/internal/infrastructure/plugin"
)

type fixture struct {
	bus      *events.Bus
	registry *registryinfra.Registry
	tracker  *Tracker
	seen     []domainplugin.Event
}

func newFixture(t *testing.T, ids ...string) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{bus: events.NewBus(nil)}
	f.registry = registryinfra.NewRegistry(f.bus)
	for _, id := range ids {
		require.NoError(t, f.registry.Register(&domainplugin.Descriptor{ID: id, Name: id}))
		require.NoError(t, f.registry.Install(ctx, id))
		require.NoError(t, f.registry.Enable(ctx, id))
	}
	f.tracker = NewTracker(f.registry, f.bus)
	t.Cleanup(f.tracker.Close)

	record := func(_ context.Context, evt domainplugin.Event) error {
		f.seen = append(f.seen, evt)
		return nil
	}
	f.bus.Subscribe(domainplugin.EventActivated, record)
	f.bus.Subscribe(domainplugin.EventDeactivated, record)
	return f
}

func (f *fixture) get(t *testing.T, id string) *domainplugin.Descriptor {
	t.Helper()
	d, ok := f.registry.Get(id)
	require.True(t, ok)
	return d
}

func TestSetActiveRequiresEnabledPlugin(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p")
	ctx := context.Background()
	require.NoError(t, f.registry.Register(&domainplugin.Descriptor{ID: "idle", Name: "idle"}))

	err := f.tracker.SetActive(ctx, f.get(t, "idle"))
	require.ErrorIs(t, err, domainplugin.ErrNotEnabled)

	_, ok := f.tracker.Active()
	require.False(t, ok)
	require.Empty(t, f.seen)
}

func TestSetActivePublishesActivation(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p", "q")
	ctx := context.Background()

	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "p")))
	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "p")))
	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "q")))
	require.NoError(t, f.tracker.SetActive(ctx, nil))

	var got []string
	for _, evt := range f.seen {
		got = append(got, string(evt.Type)+":"+evt.PluginID)
	}
	require.Equal(t, []string{"activated:p", "deactivated:p", "activated:q", "deactivated:q"}, got)
}

func TestSetActiveStoresRegistryDescriptor(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p")
	ctx := context.Background()
	live := f.get(t, "p")
	stale := &domainplugin.Descriptor{ID: "p", Name: "stale copy"}

	require.NoError(t, f.tracker.SetActive(ctx, stale))

	active, ok := f.tracker.Active()
	require.True(t, ok)
	require.Same(t, live, active)
	require.Len(t, f.seen, 1)
	require.Same(t, live, f.seen[0].Plugin)
}

func TestSelectionClearedOnDisable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p", "other")
	ctx := context.Background()
	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "p")))

	f.bus.Publish(ctx, domainplugin.Event{Type: domainplugin.EventDisabled, PluginID: "other"})
	require.Equal(t, "p", f.tracker.ActiveID())

	f.bus.Publish(ctx, domainplugin.Event{Type: domainplugin.EventDisabled, PluginID: "p"})
	_, ok := f.tracker.Active()
	require.False(t, ok)

	require.Len(t, f.seen, 1, "forced clear must not publish")
}

func TestSelectionClearedOnUninstall(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "b")
	ctx := context.Background()
	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "b")))

	require.NoError(t, f.registry.Uninstall(ctx, "b"))
	require.Empty(t, f.tracker.ActiveID())
	require.Empty(t, f.registry.ListEnabled())
}

func TestToggle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p", "q")
	ctx := context.Background()

	require.NoError(t, f.tracker.Toggle(ctx, f.get(t, "p")))
	require.Equal(t, "p", f.tracker.ActiveID())

	require.NoError(t, f.tracker.Toggle(ctx, f.get(t, "q")))
	require.Equal(t, "q", f.tracker.ActiveID())

	require.NoError(t, f.tracker.Toggle(ctx, f.get(t, "q")))
	require.Empty(t, f.tracker.ActiveID())
}

func TestCloseStopsClearing(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "p")
	ctx := context.Background()
	require.NoError(t, f.tracker.SetActive(ctx, f.get(t, "p")))

	f.tracker.Close()
	f.bus.Publish(ctx, domainplugin.Event{Type: domainplugin.EventDisabled, PluginID: "p"})
	require.Equal(t, "p", f.tracker.ActiveID())
}
