package plugin

// State is the registry-tracked lifecycle position of a plugin.
type State int

const (
	StateRegistered State = iota
	StateInstalled
	StateEnabled
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInstalled:
		return "installed"
	case StateEnabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// Installed reports whether the state implies an installed plugin.
func (s State) Installed() bool {
	return s == StateInstalled || s == StateEnabled
}
