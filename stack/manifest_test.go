package stack_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/stack"
)

// writeTemp creates a file under dir, including parent
// directories, and returns its path.
func writeTemp(
	tb testing.TB,
	dir string,
	name string,
	content string,
) string {
	tb.Helper()

	pa := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(tb, os.MkdirAll(filepath.Dir(pa), 0o750))
	require.NoError(tb, os.WriteFile(pa, []byte(content), 0o600))

	return pa
}

func TestLoadManifest_example(t *testing.T) {
	t.Parallel()

	ma, err := stack.LoadManifest("../examples/express-auth")
	require.NoError(t, err)

	assert.Equal(t, "express-auth@1", ma.Name())
	assert.Len(t, ma.Files, 3)
	assert.Equal(t, "routes/auth.routes.js", ma.Files[2].Dest)
	assert.Equal(t, "/auth", ma.Files[2].Set["bl__ROUTE_PREFIX"])
	require.NotNil(t, ma.CreatedAt)
	assert.Equal(t, 2026, ma.CreatedAt.Year())
}

func TestLoadManifest_yaml(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestYAML, `
id: api
version: "2"
ignore: [dist]
set:
  bl__PORT: "8080"
files:
  - ref: logger@1.js
    dest: src/logger.js
`)

	ma, err := stack.LoadManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, "api@2", ma.Name())
	assert.Equal(t, []string{"dist"}, ma.Ignore)
	assert.Equal(t, "logger@1.js", ma.Files[0].Ref)
}

func TestLoadManifest_missing(t *testing.T) {
	t.Parallel()

	_, err := stack.LoadManifest(t.TempDir())

	require.ErrorIs(t, err, stack.ErrNoManifest)
}

func TestParseManifest_schema_violations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"missing id", `{"version": "1"}`},
		{"non numeric version", `{"id": "x", "version": "v1"}`},
		{"numeric version", `{"id": "x", "version": 1}`},
		{"zero version", `{"id": "x", "version": "0"}`},
		{"leading zero version", `{"id": "x", "version": "01"}`},
		{"unknown field", `{"id": "x", "version": "1", "name": "x"}`},
		{"entry without dest", `{"id": "x", "version": "1", "files": [{"snippet": "a.js"}]}`},
		{"entry with both sources", `{"id": "x", "version": "1", "files": [{"snippet": "a.js", "ref": "a@1.js", "dest": "a.js"}]}`},
		{"entry without source", `{"id": "x", "version": "1", "files": [{"dest": "a.js"}]}`},
		{"non string override", `{"id": "x", "version": "1", "set": {"bl__A": 1}}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := stack.ParseManifest([]byte(tt.data), false)
			assert.Error(t, err)
		})
	}
}

func TestParseManifest_invalid_json(t *testing.T) {
	t.Parallel()

	_, err := stack.ParseManifest([]byte(`{"id": `), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing manifest")
}

func TestWriteManifest_roundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	in := &stack.Manifest{
		ID:      "cli",
		Version: "3",
		Ignore:  []string{"bin/"},
		Set:     map[string]string{"bl__NAME": "tool"},
	}

	require.NoError(t, stack.WriteManifest(dir, in))

	out, err := stack.LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestIgnored(t *testing.T) {
	t.Parallel()

	patterns := []string{"node_modules", "*.log", "dist/", "docs/internal"}

	ignored := []string{
		"node_modules",
		"pkg/node_modules/x.js",
		"debug.log",
		"logs/app.log",
		"dist/main.js",
		"docs/internal/notes.md",
		".git/config",
		"a.js.digest",
	}
	for _, rel := range ignored {
		assert.True(t, stack.Ignored(patterns, rel), rel)
	}

	kept := []string{"src/index.js", "docs/readme.md", "distribution.txt"}
	for _, rel := range kept {
		assert.False(t, stack.Ignored(patterns, rel), rel)
	}
}

func TestWalk_lexical_order_without_ignored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id":"x","version":"1"}`)
	writeTemp(t, dir, "src/b.js", "b")
	writeTemp(t, dir, "src/a.js", "a")
	writeTemp(t, dir, "README.md", "r")
	writeTemp(t, dir, "node_modules/dep/index.js", "d")
	writeTemp(t, dir, "app.log", "l")

	got, err := stack.Walk(dir, []string{"node_modules", "*.log"})

	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "src/a.js", "src/b.js"}, got)
}
