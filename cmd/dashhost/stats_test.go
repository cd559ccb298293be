package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatsCommand(t *testing.T) {
	path := writeManifest(t, "plugins.yaml", sampleManifest)

	stdout, _, err := executeCommand(t, "stats", "-m", path)
	require.NoError(t, err)
	require.Contains(t, stdout, "Total")
	require.Contains(t, stdout, "4")

	stdout, _, err = executeCommand(t, "stats", "-m", path, "--json")
	require.NoError(t, err)
	var stats map[string]int
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Equal(t, 4, stats["total"])
	require.Equal(t, 3, stats["enabled"])
}
