package plugin

import "time"

// EventType identifies a lifecycle event kind.
type EventType string

const (
	EventInstalled   EventType = "installed"
	EventUninstalled EventType = "uninstalled"
	EventEnabled     EventType = "enabled"
	EventDisabled    EventType = "disabled"
	EventActivated   EventType = "activated"
	EventDeactivated EventType = "deactivated"
)

// EventTypes lists every lifecycle event kind in declaration order.
var EventTypes = []EventType{
	EventInstalled,
	EventUninstalled,
	EventEnabled,
	EventDisabled,
	EventActivated,
	EventDeactivated,
}

// StateEventTypes are the kinds emitted by registry transitions.
var StateEventTypes = []EventType{
	EventInstalled,
	EventUninstalled,
	EventEnabled,
	EventDisabled,
}

// Event is a lifecycle notification. Plugin references the live descriptor
// and must be treated as read-only by subscribers.
type Event struct {
	Type      EventType
	PluginID  string
	Plugin    *Descriptor
	Timestamp time.Time
}

// IsValid reports whether t is a known event kind.
func (t EventType) IsValid() bool {
	for _, candidate := range EventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
