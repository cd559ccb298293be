package tui

import (
	"context"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestUpdate_WindowSizeMsg(t *testing.T) {
	m, _ := newTestModel(t)

	updated, cmd := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	require.Nil(t, cmd)
	m = updated.(Model)
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 40, m.height)
}

func TestUpdate_LifecycleKeys(t *testing.T) {
	tests := []struct {
		name      string
		key       rune
		enabled   bool
		operation string
		want      domainplugin.State
	}{
		{"disable enabled plugin", 'd', true, opDisable, domainplugin.StateInstalled},
		{"enable installed plugin", 'e', false, opEnable, domainplugin.StateEnabled},
		{"uninstall plugin", 'u', false, opUninstall, domainplugin.StateRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, h := newTestModel(t, &domainplugin.Descriptor{
				ID: "alpha", Name: "Alpha", Config: domainplugin.Config{Enabled: tt.enabled},
			})

			updated, cmd := m.Update(key(tt.key))
			m = updated.(Model)
			op, pending := m.Pending("alpha")
			require.True(t, pending)
			require.Equal(t, tt.operation, op)

			done := operationResult(t, runCmd(t, cmd))
			require.NoError(t, done.Err)
			require.Equal(t, tt.operation, done.Operation)

			updated, _ = m.Update(done)
			m = updated.(Model)
			_, pending = m.Pending("alpha")
			require.False(t, pending)

			state, _ := h.Registry().State("alpha")
			require.Equal(t, tt.want, state)
			require.Equal(t, tt.want, m.Rows()[0].State)
		})
	}
}

func TestUpdate_InstallAfterUninstall(t *testing.T) {
	m, h := newTestModel(t, &domainplugin.Descriptor{ID: "alpha", Name: "Alpha"})
	require.NoError(t, h.Registry().Uninstall(context.Background(), "alpha"))

	_, cmd := m.Update(key('i'))
	done := operationResult(t, runCmd(t, cmd))
	require.NoError(t, done.Err)
	require.True(t, h.Registry().IsInstalled("alpha"))
}

func TestUpdate_RejectedOperationReportsError(t *testing.T) {
	m, _ := newTestModel(t, &domainplugin.Descriptor{ID: "alpha", Name: "Alpha"})

	updated, cmd := m.Update(key('d'))
	m = updated.(Model)
	done := operationResult(t, runCmd(t, cmd))
	require.Equal(t, domainplugin.ErrCodeAlreadyDisabled, domainplugin.CodeOf(done.Err))

	updated, _ = m.Update(done)
	m = updated.(Model)
	require.Contains(t, m.Error(), "disable alpha failed")
}

func TestUpdate_IgnoresKeyWhileOperationPending(t *testing.T) {
	m, _ := newTestModel(t, &domainplugin.Descriptor{ID: "alpha", Name: "Alpha"})

	updated, cmd := m.Update(key('e'))
	require.NotNil(t, cmd)
	m = updated.(Model)

	_, cmd = m.Update(key('d'))
	require.Nil(t, cmd)
}

func TestUpdate_EnterTogglesActivePlugin(t *testing.T) {
	m, h := newTestModel(t, &domainplugin.Descriptor{
		ID: "alpha", Name: "Alpha", Config: domainplugin.Config{Enabled: true},
	})

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	updated, _ = m.Update(operationResult(t, runCmd(t, cmd)))
	m = updated.(Model)
	require.Equal(t, "alpha", m.ActiveID())
	require.Equal(t, "alpha", h.Tracker().ActiveID())

	updated, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	updated, _ = m.Update(operationResult(t, runCmd(t, cmd)))
	m = updated.(Model)
	require.Empty(t, m.ActiveID())
}

func TestUpdate_EnterOnDisabledPluginFails(t *testing.T) {
	m, _ := newTestModel(t, &domainplugin.Descriptor{ID: "alpha", Name: "Alpha"})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	done := operationResult(t, runCmd(t, cmd))
	require.Equal(t, domainplugin.ErrCodeNotEnabled, domainplugin.CodeOf(done.Err))
}

func TestUpdate_EventMsgReloadsAndKeepsListening(t *testing.T) {
	m, h := newTestModel(t, &domainplugin.Descriptor{ID: "alpha", Name: "Alpha"})

	require.NoError(t, h.Registry().Enable(context.Background(), "alpha"))
	updated, cmd := m.Update(EventMsg{Event: domainplugin.Event{Type: domainplugin.EventEnabled, PluginID: "alpha"}})
	m = updated.(Model)

	require.NotNil(t, cmd)
	require.Equal(t, domainplugin.StateEnabled, m.Rows()[0].State)
	require.Equal(t, []string{"alpha"}, m.nav)
	require.Equal(t, "enabled alpha", m.lastEvent)
}

func TestUpdate_SpinnerStopsWhenIdle(t *testing.T) {
	m, _ := newTestModel(t)

	_, cmd := m.Update(spinner.TickMsg{})
	require.Nil(t, cmd)
}

func TestUpdate_Quit(t *testing.T) {
	m, _ := newTestModel(t)

	updated, cmd := m.Update(key('q'))
	require.NotNil(t, cmd)
	m = updated.(Model)
	require.True(t, m.quitting)
	require.IsType(t, tea.QuitMsg{}, cmd())
}
