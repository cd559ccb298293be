package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		if len(m.pending) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case EventMsg:
		m.lastEvent = fmt.Sprintf("%s %s", msg.Event.Type, msg.Event.PluginID)
		m.reload()
		return m, m.listen()

	case OperationDoneMsg:
		delete(m.pending, msg.PluginID)
		if msg.Err != nil {
			m.errorMsg = fmt.Sprintf("%s %s failed: %v", msg.Operation, msg.PluginID, msg.Err)
		} else {
			m.errorMsg = ""
		}
		m.reload()
		return m, nil

	case ClearErrorMsg:
		m.errorMsg = ""
		return m, nil

	case eventsClosedMsg:
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		m.moveUp()
		return m, nil

	case "down", "j":
		m.moveDown()
		return m, nil

	case "x", "esc":
		m.errorMsg = ""
		return m, nil

	case "i":
		return m.start(opInstall, m.host.Registry().Install)

	case "u":
		return m.start(opUninstall, m.host.Registry().Uninstall)

	case "e":
		return m.start(opEnable, m.host.Registry().Enable)

	case "d":
		return m.start(opDisable, m.host.Registry().Disable)

	case "enter", " ":
		row, ok := m.Selected()
		if !ok {
			return m, nil
		}
		tracker := m.host.Tracker()
		return m.start(opToggle, func(ctx context.Context, _ string) error {
			return tracker.Toggle(ctx, row.Plugin)
		})
	}

	return m, nil
}

// start launches a lifecycle call for the selected plugin unless one is
// already running for it.
func (m Model) start(operation string, fn func(context.Context, string) error) (tea.Model, tea.Cmd) {
	row, ok := m.Selected()
	if !ok {
		return m, nil
	}
	id := row.Plugin.ID
	if _, busy := m.pending[id]; busy {
		return m, nil
	}
	m.pending[id] = operation
	m.errorMsg = ""

	run := func(ctx context.Context) error { return fn(ctx, id) }
	return m, tea.Batch(m.spinner.Tick, operationCmd(m.ctx, operation, id, run))
}
