package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgraph/internal/cli"
)

func TestRun_Build(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	pipeline := `
entries = ["a.src"]

rule "src" {
  include = ["*.src"]
  stage "copy" {}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.hcl"), []byte(pipeline), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.src"), []byte("hello"), 0o600))
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}

	// --- Act ---
	err := run(out, logs, []string{"build", "--config", filepath.Join(dir, "assets.hcl")})

	// --- Assert ---
	require.NoError(t, err)
	assert.Contains(t, out.String(), "a.src")
	data, err := os.ReadFile(filepath.Join(dir, "dist", "asset-manifest.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"a.src": "blake3:`)
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag prints usage and succeeds.
	out := &bytes.Buffer{}

	err := run(out, &bytes.Buffer{}, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// Providing an unknown flag is a usage error.
	out := &bytes.Buffer{}

	err := run(out, &bytes.Buffer{}, []string{"build", "--this-is-not-a-valid-flag"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, cli.ExitUsage, exitErr.Code)
	assert.Contains(t, exitErr.Message, "unknown flag: --this-is-not-a-valid-flag")
}
