package host

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

func desc(id string, enabled bool, deps ...string) *domainplugin.Descriptor {
	return &domainplugin.Descriptor{
		ID:   id,
		Name: id,
		Config: domainplugin.Config{
			Enabled:      enabled,
			Dependencies: deps,
		},
	}
}

func navIDs(h *Host) []string {
	var out []string
	for _, d := range h.Projection().Items() {
		out = append(out, d.ID)
	}
	return out
}

func TestBootstrapInstallsInDependencyOrder(t *testing.T) {
	t.Parallel()

	h := New(Options{})
	defer h.Close()

	var installs []string
	track := func(id string) domainplugin.Hook {
		return func(context.Context) error {
			installs = append(installs, id)
			return nil
		}
	}
	dashboard := desc("dashboard", true, "auth")
	dashboard.Lifecycle.OnInstall = track("dashboard")
	auth := desc("auth", true)
	auth.Lifecycle.OnInstall = track("auth")
	reports := desc("reports", false)
	reports.Lifecycle.OnInstall = track("reports")

	err := h.Bootstrap(context.Background(), []*domainplugin.Descriptor{dashboard, auth, reports})
	require.NoError(t, err)

	require.Equal(t, []string{"auth", "reports", "dashboard"}, installs)
	require.True(t, h.Registry().IsEnabled("dashboard"))
	require.True(t, h.Registry().IsEnabled("auth"))
	require.True(t, h.Registry().IsInstalled("reports"))
	require.False(t, h.Registry().IsEnabled("reports"))
	require.ElementsMatch(t, []string{"dashboard", "auth"}, navIDs(h))
}

func TestBootstrapCollectsFailures(t *testing.T) {
	t.Parallel()

	h := New(Options{})
	defer h.Close()

	broken := desc("broken", true)
	broken.Lifecycle.OnInstall = func(context.Context) error { return errors.New("no disk") }
	child := desc("child", true, "broken")
	healthy := desc("healthy", true)

	err := h.Bootstrap(context.Background(), []*domainplugin.Descriptor{
		broken,
		child,
		healthy,
		desc("healthy", false),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, domainplugin.ErrHookFailed)
	require.ErrorIs(t, err, domainplugin.ErrDependencyMissing)
	require.ErrorIs(t, err, domainplugin.ErrDuplicate)

	require.True(t, h.Registry().IsEnabled("healthy"))
	require.False(t, h.Registry().IsInstalled("broken"))
	require.False(t, h.Registry().IsInstalled("child"))
}

func TestBootstrapReportsCycles(t *testing.T) {
	t.Parallel()

	h := New(Options{})
	defer h.Close()

	err := h.Bootstrap(context.Background(), []*domainplugin.Descriptor{
		desc("a", true, "b"),
		desc("b", true, "a"),
	})
	require.Error(t, err)
	require.Equal(t, domainplugin.ErrCodeCycle, domainplugin.CodeOf(errors.Unwrap(err)))
}

func TestReconcileAddsAndRemoves(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := New(Options{})
	defer h.Close()

	require.NoError(t, h.Bootstrap(ctx, []*domainplugin.Descriptor{
		desc("keep", true),
		desc("drop", true),
	}))
	drop, _ := h.Registry().Get("drop")
	require.NoError(t, h.Tracker().SetActive(ctx, drop))

	var seen []string
	h.Bus().SubscribeAll(func(_ context.Context, evt domainplugin.Event) error {
		seen = append(seen, string(evt.Type)+":"+evt.PluginID)
		return nil
	})

	require.NoError(t, h.Reconcile(ctx, []*domainplugin.Descriptor{
		desc("keep", false),
		desc("fresh", true),
	}))

	_, exists := h.Registry().Get("drop")
	require.False(t, exists)
	require.True(t, h.Registry().IsEnabled("keep"), "existing plugins keep their state")
	require.True(t, h.Registry().IsEnabled("fresh"))
	require.Empty(t, h.Tracker().ActiveID())
	require.Equal(t, []string{
		"disabled:drop",
		"uninstalled:drop",
		"installed:fresh",
		"enabled:fresh",
	}, seen)
	require.Equal(t, []string{"keep", "fresh"}, navIDs(h))
}

func TestHostsAreIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first := New(Options{})
	second := New(Options{})
	defer first.Close()
	defer second.Close()

	require.NoError(t, first.Bootstrap(ctx, []*domainplugin.Descriptor{desc("a", true)}))
	require.Empty(t, second.Registry().List())
}
