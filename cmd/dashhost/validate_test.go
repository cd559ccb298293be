package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCommand_Valid(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", sampleManifest)

	stdout, _, err := executeCommand(t, "validate", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "is valid (4 plugins)")
}

func TestValidateCommand_UsesManifestFlag(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", sampleManifest)

	_, _, err := executeCommand(t, "validate", "-m", path)
	require.NoError(t, err)
}

func TestValidateCommand_Duplicate(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", `version: "1.0.0"
plugins:
  - id: alpha
    name: Alpha
  - id: alpha
    name: Again
`)

	_, _, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unique id")
}

func TestValidateCommand_BadHook(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", `version: "1.0.0"
plugins:
  - id: alpha
    name: Alpha
    hooks:
      on_install: "if then"
`)

	_, _, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Lua hook")
}

func TestValidateCommand_DependencyCycle(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", `version: "1.0.0"
plugins:
  - id: alpha
    name: Alpha
    dependencies: [beta]
  - id: beta
    name: Beta
    dependencies: [alpha]
`)

	_, _, err := executeCommand(t, "validate", path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dependency cycle detected: alpha -> beta -> alpha")
	require.Contains(t, err.Error(), "Remove one of the dependencies")
}
