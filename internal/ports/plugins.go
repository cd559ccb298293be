package ports

import (
	"context"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
)

// PluginSource is the read side of the registry consumed by projections and
// presentation layers. Lists are in registration order and return the live
// descriptors.
type PluginSource interface {
	Get(id string) (*domainplugin.Descriptor, bool)
	List() []*domainplugin.Descriptor
	ListInstalled() []*domainplugin.Descriptor
	ListEnabled() []*domainplugin.Descriptor
	IsInstalled(id string) bool
	IsEnabled(id string) bool
	State(id string) (domainplugin.State, bool)
}

// PluginRegistry owns descriptors and arbitrates every lifecycle transition.
// Every failure is a *domainplugin.DomainError; no operation panics across
// the API boundary.
type PluginRegistry interface {
	PluginSource
	Register(d *domainplugin.Descriptor) error
	Unregister(ctx context.Context, id string) error
	Install(ctx context.Context, id string) error
	Uninstall(ctx context.Context, id string) error
	Enable(ctx context.Context, id string) error
	Disable(ctx context.Context, id string) error
}
