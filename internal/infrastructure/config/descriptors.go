package config

import (
	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/ports"
)

// ToDescriptors maps manifest entries to domain descriptors, compiling hook
// sources with compiler. Icons become string handles.
func ToDescriptors(manifest *Manifest, compiler ports.HookCompiler) ([]*domainplugin.Descriptor, error) {
	if manifest == nil {
		return nil, nil
	}

	descriptors := make([]*domainplugin.Descriptor, 0, len(manifest.Plugins))
	for _, spec := range manifest.Plugins {
		lifecycle, err := compileLifecycle(spec, compiler)
		if err != nil {
			return nil, err
		}

		d := &domainplugin.Descriptor{
			ID:          spec.ID,
			Name:        spec.Name,
			Description: spec.Description,
			Version:     spec.Version,
			Author:      spec.Author,
			Category:    spec.Category,
			Routes:      mapRoutes(spec.Routes),
			Config: domainplugin.Config{
				Position:     spec.Position,
				ShowInNav:    cloneBool(spec.ShowInNav),
				Enabled:      spec.Enabled,
				Permissions:  append([]string(nil), spec.Permissions...),
				Dependencies: append([]string(nil), spec.Dependencies...),
				Settings:     cloneMap(spec.Settings),
			},
			Lifecycle: lifecycle,
		}
		if spec.Icon != "" {
			d.Icon = spec.Icon
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func compileLifecycle(spec PluginSpec, compiler ports.HookCompiler) (domainplugin.Lifecycle, error) {
	var lifecycle domainplugin.Lifecycle
	if compiler == nil {
		return lifecycle, nil
	}

	hooks := []struct {
		name   string
		source string
		target *domainplugin.Hook
	}{
		{"on_install", spec.Hooks.OnInstall, &lifecycle.OnInstall},
		{"on_uninstall", spec.Hooks.OnUninstall, &lifecycle.OnUninstall},
		{"on_enable", spec.Hooks.OnEnable, &lifecycle.OnEnable},
		{"on_disable", spec.Hooks.OnDisable, &lifecycle.OnDisable},
	}
	for _, h := range hooks {
		hook, err := compiler.CompileHook(spec.ID, h.name, h.source)
		if err != nil {
			return lifecycle, err
		}
		*h.target = hook
	}

	onError, err := compiler.CompileErrorHook(spec.ID, spec.Hooks.OnError)
	if err != nil {
		return lifecycle, err
	}
	lifecycle.OnError = onError
	return lifecycle, nil
}

func mapRoutes(specs []RouteSpec) []domainplugin.Route {
	if len(specs) == 0 {
		return nil
	}
	routes := make([]domainplugin.Route, len(specs))
	for i, spec := range specs {
		routes[i] = domainplugin.Route{
			Path:        spec.Path,
			Title:       spec.Title,
			Hidden:      spec.Hidden,
			Permissions: append([]string(nil), spec.Permissions...),
		}
	}
	return routes
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	return domainplugin.Bool(*v)
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	clone := make(map[string]any, len(src))
	for k, v := range src {
		clone[k] = v
	}
	return clone
}
