package snippet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/snippet"
)

func TestParse_front_matter(t *testing.T) {
	t.Parallel()

	text := `---boiler
author: alice
description: JWT middleware
version: 3
variables:
  - name: bl__SECRET
    default: changeme
  - name: bl__HEADER
  - name: bl__PORT
    default: 8080
---
const secret = "bl__SECRET";
`

	sn, err := snippet.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, snippet.FormatFrontMatter, sn.Format)
	assert.Equal(t, "alice", sn.Author)
	assert.Equal(t, "JWT middleware", sn.Description)
	assert.Equal(t, 3, sn.Version)
	assert.Equal(
		t,
		[]string{"bl__SECRET", "bl__HEADER", "bl__PORT"},
		sn.Names(),
	)

	port, _ := sn.Lookup("bl__PORT")
	assert.True(t, port.HasDefault)
	assert.Equal(t, "8080", port.Default)

	header, _ := sn.Lookup("bl__HEADER")
	assert.False(t, header.HasDefault)

	assert.Equal(t, "const secret = \"bl__SECRET\";\n", sn.Body)
}

func TestParse_front_matter_unterminated(t *testing.T) {
	t.Parallel()

	_, err := snippet.Parse("---boiler\nauthor: alice\nbody\n")
	require.ErrorIs(t, err, snippet.ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "end marker")
}

func TestParse_front_matter_missing_name(t *testing.T) {
	t.Parallel()

	_, err := snippet.Parse("---boiler\nvariables:\n  - default: x\n---\n")
	require.ErrorIs(t, err, snippet.ErrMalformedTemplate)
	assert.Contains(t, err.Error(), "missing name")
}

func TestParse_front_matter_conflict(t *testing.T) {
	t.Parallel()

	text := "---boiler\nvariables:\n" +
		"  - name: bl__A\n    default: x\n" +
		"  - name: bl__A\n    default: y\n---\n"

	_, err := snippet.Parse(text)

	var cde *snippet.ConflictingDefaultError
	require.ErrorAs(t, err, &cde)
	assert.Equal(t, "bl__A", cde.Name)
}

func TestParse_front_matter_invalid_yaml(t *testing.T) {
	t.Parallel()

	_, err := snippet.Parse("---boiler\nvariables: [\n---\n")
	require.ErrorIs(t, err, snippet.ErrMalformedTemplate)
}

func TestGenerate_roundtrip(t *testing.T) {
	t.Parallel()

	meta := snippet.Metadata{Author: "bob", Description: "routes", Version: 1}
	vars := []snippet.Variable{
		{Name: "bl__ROUTER", Default: "Router", HasDefault: true},
		{Name: "bl__PREFIX"},
	}

	header, err := snippet.Generate(meta, vars)
	require.NoError(t, err)

	sn, err := snippet.Parse(header + "export default bl__ROUTER;\n")
	require.NoError(t, err)

	assert.Equal(t, meta, sn.Metadata)
	assert.Equal(t, []string{"bl__ROUTER", "bl__PREFIX"}, sn.Names())

	router, _ := sn.Lookup("bl__ROUTER")
	assert.Equal(t, "Router", router.Default)

	prefix, _ := sn.Lookup("bl__PREFIX")
	assert.False(t, prefix.HasDefault)

	assert.Equal(t, "export default bl__ROUTER;\n", sn.Body)
}

func TestParse_front_matter_default_kept_as_written(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		literal string
		want    string
	}{
		{"octal", "0755", "0755"},
		{"leading zeros", "007", "007"},
		{"hex", "0x1F", "0x1F"},
		{"float", "1.0", "1.0"},
		{"underscores", "1_000", "1_000"},
		{"boolean", "yes", "yes"},
		{"quoted", `"0755"`, "0755"},
		{"single quoted", "'a: b'", "a: b"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			text := "---boiler\nvariables:\n  - name: bl__X\n    default: " +
				tt.literal + "\n---\nmode = bl__X\n"

			sn, err := snippet.Parse(text)
			require.NoError(t, err)

			x, ok := sn.Lookup("bl__X")
			require.True(t, ok)
			assert.True(t, x.HasDefault)
			assert.Equal(t, tt.want, x.Default)
		})
	}
}

func TestParse_front_matter_default_matches_marker_form(t *testing.T) {
	t.Parallel()

	fm, err := snippet.Parse("---boiler\nvariables:\n  - name: bl__MODE\n    default: 0755\n---\nx\n")
	require.NoError(t, err)

	mk, err := snippet.Parse("// __var bl__MODE = 0755\nx\n")
	require.NoError(t, err)

	assert.Equal(t, mk.Variables[0].Default, fm.Variables[0].Default)
}

func TestParse_front_matter_non_scalar_default(t *testing.T) {
	t.Parallel()

	for _, literal := range []string{"[a]", "[a, b]", "{}", "{k: v}"} {
		literal := literal
		t.Run(literal, func(t *testing.T) {
			t.Parallel()

			text := "---boiler\nvariables:\n  - name: bl__X\n    default: " +
				literal + "\n---\nbl__X\n"

			_, err := snippet.Parse(text)
			require.ErrorIs(t, err, snippet.ErrMalformedTemplate)

			var mte *snippet.MalformedTemplateError
			require.ErrorAs(t, err, &mte)
		})
	}
}

func TestParse_front_matter_null_default(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse("---boiler\nvariables:\n  - name: bl__X\n    default:\n---\nbl__X\n")
	require.NoError(t, err)

	x, ok := sn.Lookup("bl__X")
	require.True(t, ok)
	assert.False(t, x.HasDefault)
}

func TestGenerate_numeric_looking_default(t *testing.T) {
	t.Parallel()

	header, err := snippet.Generate(
		snippet.Metadata{Author: "bob"},
		[]snippet.Variable{{Name: "bl__MODE", Default: "0755", HasDefault: true}},
	)
	require.NoError(t, err)

	sn, err := snippet.Parse(header)
	require.NoError(t, err)

	mode, _ := sn.Lookup("bl__MODE")
	assert.Equal(t, "0755", mode.Default)
}
