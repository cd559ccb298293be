package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Lifecycle operations the dashboard can start.
const (
	opInstall   = "install"
	opUninstall = "uninstall"
	opEnable    = "enable"
	opDisable   = "disable"
	opToggle    = "toggle"
)

// operationCmd runs one lifecycle call off the update loop.
func operationCmd(ctx context.Context, operation, id string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return OperationDoneMsg{PluginID: id, Operation: operation, Err: fn(ctx)}
	}
}
