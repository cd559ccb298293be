package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	domainplugin "github.com/alexisbeaulieu97/dashhost/internal/domain/plugin"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/dashhost/internal/infrastructure/luahook"
)

const validYAML = `version: "1.0"
settings:
  log_level: debug
  log_format: json
plugins:
  - id: core
    name: Core
    enabled: true
  - id: weather
    name: Weather
    description: Forecast widget
    version: 1.2.0
    author: Jane
    category: widgets
    icon: cloud
    position: 2
    show_in_nav: false
    enabled: true
    permissions: [network]
    dependencies: [core]
    settings:
      units: metric
    routes:
      - path: /weather
        title: Forecast
    hooks:
      on_install: |
        if plugin_id ~= "weather" then error("wrong id") end
      on_enable: 'return false, "no api key"'
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func newTestLoader() *ManifestLoader {
	return NewManifestLoader(logging.NewNoOpLogger(), luahook.NewCompiler())
}

func assertDomainError(t *testing.T, err error, code domainplugin.ErrorCode) {
	t.Helper()
	var domainErr *domainplugin.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T (%v)", err, err)
	}
	if domainErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, domainErr.Code, err)
	}
}

func TestManifestLoaderLoadYAML(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "plugins.yaml", validYAML)

	manifest, err := loader.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if manifest.Settings.LogLevel != "debug" || manifest.Settings.LogFormat != "json" {
		t.Fatalf("unexpected settings %+v", manifest.Settings)
	}
	if len(manifest.Plugins) != 2 {
		t.Fatalf("expected 2 plugins, got %d", len(manifest.Plugins))
	}
	weather := manifest.Plugins[1]
	if weather.ShowInNav == nil || *weather.ShowInNav {
		t.Fatalf("expected show_in_nav=false to be preserved")
	}
	if weather.Settings["units"] != "metric" {
		t.Fatalf("expected settings to be preserved, got %v", weather.Settings)
	}
}

func TestManifestLoaderDescriptors(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "plugins.yml", validYAML)
	ctx := context.Background()

	descriptors, err := loader.Descriptors(ctx, path)
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 descriptors, got %d", len(descriptors))
	}

	weather := descriptors[1]
	if weather.Icon != "cloud" || weather.Config.Position != 2 || weather.InNav() {
		t.Fatalf("unexpected weather descriptor %+v", weather)
	}
	if !weather.HasDependency("core") || !weather.Config.Enabled {
		t.Fatalf("expected dependency and enabled flag")
	}
	if len(weather.Routes) != 1 || weather.Routes[0].Path != "/weather" {
		t.Fatalf("unexpected routes %+v", weather.Routes)
	}
	if weather.Lifecycle.OnInstall == nil || weather.Lifecycle.OnEnable == nil {
		t.Fatal("expected compiled hooks")
	}
	if weather.Lifecycle.OnDisable != nil {
		t.Fatal("absent hooks must stay nil")
	}
	if err := weather.Lifecycle.OnInstall(ctx); err != nil {
		t.Fatalf("install hook: %v", err)
	}
	if err := weather.Lifecycle.OnEnable(ctx); err == nil {
		t.Fatal("expected enable hook to fail")
	}
	if descriptors[0].Icon != nil {
		t.Fatalf("expected nil icon handle, got %v", descriptors[0].Icon)
	}
}

func TestManifestLoaderLoadTOML(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "plugins.toml", `version = "1.0.0"

[[plugins]]
id = "core"
name = "Core"
enabled = true

[[plugins]]
id = "chat"
name = "Chat"
position = 1
dependencies = ["core"]

[plugins.hooks]
on_install = "log('installing ' .. plugin_id)"
`)

	descriptors, err := loader.Descriptors(context.Background(), path)
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	if len(descriptors) != 2 || descriptors[1].ID != "chat" {
		t.Fatalf("unexpected descriptors %+v", descriptors)
	}
	if descriptors[1].Lifecycle.OnInstall == nil {
		t.Fatal("expected chat install hook")
	}
	if descriptors[1].Config.Position != 1 {
		t.Fatalf("expected position 1, got %d", descriptors[1].Config.Position)
	}
}

func TestManifestLoaderLoadMissingFile(t *testing.T) {
	loader := newTestLoader()

	_, err := loader.Load(context.Background(), "does-not-exist.yaml")
	assertDomainError(t, err, domainplugin.ErrCodeNotFound)
}

func TestManifestLoaderLoadParseError(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "bad.yaml", "version: [")

	_, err := loader.Load(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeValidation)
}

func TestManifestLoaderTOMLParseErrorCarriesLine(t *testing.T) {
	path := writeManifest(t, "bad.toml", "version = \"1.0\"\n\nplugins = [\n")

	_, err := ParseManifest(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	loader := newTestLoader()
	_, err = loader.Load(context.Background(), path)
	var domainErr *domainplugin.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T", err)
	}
	if line, _ := domainErr.Context["line"].(int); line == 0 {
		t.Fatalf("expected line information, got %v", domainErr.Context)
	}
}

func TestManifestLoaderUnsupportedExtension(t *testing.T) {
	path := writeManifest(t, "plugins.json", "{}")

	_, err := ParseManifest(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
}

func TestManifestLoaderDuplicateID(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "dup.yaml", `version: "1.0"
plugins:
  - id: same
    name: One
  - id: same
    name: Two
`)

	_, err := loader.Load(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeDuplicate)
}

func TestManifestLoaderUnknownDependency(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "deps.yaml", `version: "1.0"
plugins:
  - id: child
    name: Child
    dependencies: [ghost]
`)

	_, err := loader.Load(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeDependencyMissing)
}

func TestManifestLoaderDependencyCycle(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "cycle.yaml", `version: "1.0"
plugins:
  - id: a
    name: A
    dependencies: [b]
  - id: b
    name: B
    dependencies: [a]
`)

	err := loader.Validate(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeCycle)

	_, err = loader.Descriptors(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeCycle)
}

func TestManifestLoaderSchemaErrors(t *testing.T) {
	cases := map[string]string{
		"missing version": `plugins: []`,
		"bad version":     "version: banana\n",
		"bad id":          "version: \"1.0\"\nplugins:\n  - id: Bad ID\n    name: x\n",
		"missing name":    "version: \"1.0\"\nplugins:\n  - id: ok\n",
		"bad log level":   "version: \"1.0\"\nsettings:\n  log_level: loud\n",
		"bad route":       "version: \"1.0\"\nplugins:\n  - id: ok\n    name: ok\n    routes:\n      - path: relative\n",
	}

	loader := newTestLoader()
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeManifest(t, "plugins.yaml", content)
			_, err := loader.Load(context.Background(), path)
			assertDomainError(t, err, domainplugin.ErrCodeValidation)
		})
	}
}

func TestManifestLoaderHookSyntaxError(t *testing.T) {
	loader := newTestLoader()
	path := writeManifest(t, "hooks.yaml", `version: "1.0"
plugins:
  - id: broken
    name: Broken
    hooks:
      on_install: "if then"
`)

	if err := loader.Validate(context.Background(), path); err != nil {
		t.Fatalf("validate does not compile hooks: %v", err)
	}
	_, err := loader.Descriptors(context.Background(), path)
	assertDomainError(t, err, domainplugin.ErrCodeInvalid)
}

func TestManifestLoaderCancelled(t *testing.T) {
	loader := newTestLoader()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, "whatever.yaml")
	assertDomainError(t, err, domainplugin.ErrCodeCancelled)
}

func TestManifestLoaderValidateDirectory(t *testing.T) {
	loader := newTestLoader()

	err := loader.Validate(context.Background(), t.TempDir())
	assertDomainError(t, err, domainplugin.ErrCodeValidation)
}

func TestToDescriptorsWithoutCompiler(t *testing.T) {
	manifest := &Manifest{
		Version: "1.0",
		Plugins: []PluginSpec{{ID: "a", Name: "A", Hooks: Hooks{OnInstall: "error('x')"}}},
	}

	descriptors, err := ToDescriptors(manifest, nil)
	if err != nil {
		t.Fatalf("to descriptors: %v", err)
	}
	if descriptors[0].Lifecycle.OnInstall != nil {
		t.Fatal("expected hooks to be skipped without a compiler")
	}
}
