package plugin

import (
	"context"
	"fmt"
	"strings"
)

// Handle is an opaque presentation value (icon, rendered content, route
// component). The host never inspects it.
type Handle interface{}

// Route describes a page contributed by a plugin. Component is opaque.
type Route struct {
	Path        string
	Title       string
	Component   Handle
	Icon        Handle
	Hidden      bool
	Permissions []string
}

// Config carries presentation and dependency settings for a plugin.
type Config struct {
	// Position is the primary navigation sort key.
	Position int
	// ShowInNav controls navigation membership; nil means shown.
	ShowInNav *bool
	// Enabled asks bootstrap to enable the plugin at startup. The registry
	// never reads or writes it.
	Enabled      bool
	Permissions  []string
	Dependencies []string
	Settings     map[string]any
}

// Hook is a lifecycle callback. It may block; the registry waits for it.
type Hook func(ctx context.Context) error

// Lifecycle groups the optional hooks invoked by the registry.
type Lifecycle struct {
	OnInstall   Hook
	OnUninstall Hook
	OnEnable    Hook
	OnDisable   Hook
	// OnUpdate is carried for plugin authors; no registry operation calls it.
	OnUpdate func(ctx context.Context, oldVersion, newVersion string) error
	OnError  func(ctx context.Context, err error)
}

// Descriptor describes one plugin. After registration it is owned by the
// registry and must not be modified.
type Descriptor struct {
	ID          string
	Name        string
	Description string
	Version     string
	Author      string
	Category    string
	Icon        Handle
	Content     Handle
	Routes      []Route
	Config      Config
	Lifecycle   Lifecycle
}

// Validate ensures the descriptor satisfies identity invariants.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("descriptor is nil")
	}
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("plugin id is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("plugin name is required")
	}
	for _, dep := range d.Config.Dependencies {
		if dep == d.ID {
			return fmt.Errorf("plugin %q depends on itself", d.ID)
		}
	}
	return nil
}

// InNav reports whether the plugin belongs in the navigation projection.
func (d *Descriptor) InNav() bool {
	if d == nil {
		return false
	}
	return d.Config.ShowInNav == nil || *d.Config.ShowInNav
}

// HasDependency reports whether id is a declared dependency.
func (d *Descriptor) HasDependency(id string) bool {
	if d == nil {
		return false
	}
	for _, dep := range d.Config.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// Matches reports whether query occurs in the name, description or author,
// ignoring case.
func (d *Descriptor) Matches(query string) bool {
	if d == nil {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.Name), q) ||
		strings.Contains(strings.ToLower(d.Description), q) ||
		strings.Contains(strings.ToLower(d.Author), q)
}

// Bool returns a pointer to v, for optional flags such as Config.ShowInNav.
func Bool(v bool) *bool {
	return &v
}
