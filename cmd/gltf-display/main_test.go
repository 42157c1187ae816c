package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/gltf-importer/report"
)

func writeAsset(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	name := filepath.Join(dir, "scene.gltf")
	require.NoError(t, os.WriteFile(name, []byte(doc), 0o644))
	return name
}

func TestRunJSON(t *testing.T) {
	name := writeAsset(t, `{"asset":{"version":"2.0","generator":"cli test"},"nodes":[{},{}]}`)
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"--format", "json", name}, &stdout, &stderr))

	var r report.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &r))
	require.NotNil(t, r.Asset)
	assert.Equal(t, "cli test", r.Asset.Generator)
	assert.Equal(t, 2, r.Asset.Counts.Nodes)
}

func TestRunFailureExitCode(t *testing.T) {
	name := writeAsset(t, `{"asset":{"version":"1.0"}}`)
	var stdout, stderr bytes.Buffer
	err := run([]string{"--no-color", name}, &stdout, &stderr)

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 1, ee.ExitCode())
	assert.Contains(t, stdout.String(), "[incompatible_version]")
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(nil, &stdout, &stderr)
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.ExitCode())

	err = run([]string{"--validation", "strict", "x.gltf"}, &stdout, &stderr)
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.ExitCode())
}

func TestRunSkipValidation(t *testing.T) {
	// A dangling node mesh index fails Minimal but imports under Skip.
	name := writeAsset(t, `{"asset":{"version":"2.0"},"nodes":[{"mesh":3}]}`)
	var stdout, stderr bytes.Buffer
	assert.Error(t, run([]string{name}, &stdout, &stderr))

	stdout.Reset()
	require.NoError(t, run([]string{"--validation", "skip", "--format", "yaml", name}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "nodes: 1")
}
