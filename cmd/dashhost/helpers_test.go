package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleManifest = `version: "1.0.0"
plugins:
  - id: auth
    name: Auth
    category: security
    version: "1.0.0"
    enabled: true
    position: 2
  - id: reports
    name: Reports
    description: Monthly reporting
    category: analytics
    enabled: true
    position: 1
    dependencies: [auth]
    hooks:
      on_enable: |
        log("reports enabled")
  - id: audit
    name: Audit
    category: security
    show_in_nav: false
    enabled: true
  - id: drafts
    name: Drafts
`

func writeManifest(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
