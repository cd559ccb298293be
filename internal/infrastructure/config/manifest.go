package config

// Manifest is the plugin manifest document. It decodes from YAML or TOML.
type Manifest struct {
	Version  string       `yaml:"version" toml:"version" validate:"required,semver"`
	Settings Settings     `yaml:"settings,omitempty" toml:"settings,omitempty"`
	Plugins  []PluginSpec `yaml:"plugins" toml:"plugins" validate:"omitempty,dive"`
}

// Settings holds host-wide preferences. Command-line flags take precedence.
type Settings struct {
	LogLevel  string `yaml:"log_level,omitempty" toml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `yaml:"log_format,omitempty" toml:"log_format,omitempty" validate:"omitempty,oneof=text json"`
}

// PluginSpec describes one plugin entry.
type PluginSpec struct {
	ID           string         `yaml:"id" toml:"id" validate:"required,plugin_id"`
	Name         string         `yaml:"name" toml:"name" validate:"required,max=100"`
	Description  string         `yaml:"description,omitempty" toml:"description,omitempty"`
	Version      string         `yaml:"version,omitempty" toml:"version,omitempty" validate:"omitempty,semver"`
	Author       string         `yaml:"author,omitempty" toml:"author,omitempty"`
	Category     string         `yaml:"category,omitempty" toml:"category,omitempty"`
	Icon         string         `yaml:"icon,omitempty" toml:"icon,omitempty"`
	Position     int            `yaml:"position,omitempty" toml:"position,omitempty"`
	ShowInNav    *bool          `yaml:"show_in_nav,omitempty" toml:"show_in_nav,omitempty"`
	Enabled      bool           `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Permissions  []string       `yaml:"permissions,omitempty" toml:"permissions,omitempty"`
	Dependencies []string       `yaml:"dependencies,omitempty" toml:"dependencies,omitempty" validate:"omitempty,dive,plugin_id"`
	Settings     map[string]any `yaml:"settings,omitempty" toml:"settings,omitempty"`
	Routes       []RouteSpec    `yaml:"routes,omitempty" toml:"routes,omitempty" validate:"omitempty,dive"`
	Hooks        Hooks          `yaml:"hooks,omitempty" toml:"hooks,omitempty"`
}

// RouteSpec declares a page contributed by a plugin.
type RouteSpec struct {
	Path        string   `yaml:"path" toml:"path" validate:"required,startswith=/"`
	Title       string   `yaml:"title,omitempty" toml:"title,omitempty"`
	Hidden      bool     `yaml:"hidden,omitempty" toml:"hidden,omitempty"`
	Permissions []string `yaml:"permissions,omitempty" toml:"permissions,omitempty"`
}

// Hooks carries Lua sources for lifecycle callbacks.
type Hooks struct {
	OnInstall   string `yaml:"on_install,omitempty" toml:"on_install,omitempty"`
	OnUninstall string `yaml:"on_uninstall,omitempty" toml:"on_uninstall,omitempty"`
	OnEnable    string `yaml:"on_enable,omitempty" toml:"on_enable,omitempty"`
	OnDisable   string `yaml:"on_disable,omitempty" toml:"on_disable,omitempty"`
	OnError     string `yaml:"on_error,omitempty" toml:"on_error,omitempty"`
}
