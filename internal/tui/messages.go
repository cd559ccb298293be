package tui

import (
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

// EventMsg delivers a lifecycle event published on the host bus.
type EventMsg struct {
	Event domainplugin.Event
}

// OperationDoneMsg reports the outcome of a lifecycle call started from the
// dashboard.
type OperationDoneMsg struct {
	PluginID  string
	Operation string
	Err       error
}

// ClearErrorMsg dismisses the error banner.
type ClearErrorMsg struct{}

type eventsClosedMsg struct{}
