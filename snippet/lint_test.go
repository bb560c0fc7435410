package snippet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/snippet"
)

func kinds(ws []snippet.Warning) map[string]snippet.WarningKind {
	out := make(map[string]snippet.WarningKind, len(ws))
	for _, w := range ws {
		out[w.Name] = w.Kind
	}

	return out
}

func TestLint_error_handler(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse(errorHandler)
	require.NoError(t, err)

	got := kinds(snippet.Lint(sn, ""))

	assert.Equal(
		t,
		map[string]snippet.WarningKind{
			"bl_ERROR_MESSAGE":  snippet.WarnMismatchedToken,
			"bl__FUNCTION_NAME": snippet.WarnUnused,
			"bl__ERROR_DESC":    snippet.WarnUnused,
			"bl__ERROR_MESSAGE": snippet.WarnUnused,
		},
		got,
	)
}

func TestLint_mismatched_token_suggests_declared_name(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse(errorHandler)
	require.NoError(t, err)

	for _, w := range snippet.Lint(sn, snippet.DefaultPrefix) {
		if w.Kind != snippet.WarnMismatchedToken {
			continue
		}

		assert.Contains(t, w.Message, "looks like bl__ERROR_MESSAGE")
		assert.Equal(t, 2, w.Line)
	}
}

func TestLint_prefix_and_undeclared(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse(
		"// __var APP_NAME = demo\n" +
			"const name = 'APP_NAME';\n" +
			"const port = bl__PORT;\n",
	)
	require.NoError(t, err)

	ws := snippet.Lint(sn, "")
	require.Len(t, ws, 2)

	assert.Equal(t, snippet.WarnPrefix, ws[0].Kind)
	assert.Equal(t, "APP_NAME", ws[0].Name)
	assert.Equal(t, snippet.WarnUndeclared, ws[1].Kind)
	assert.Equal(t, "bl__PORT", ws[1].Name)
	assert.Equal(t, 2, ws[1].Line)
}

func TestLint_longest_token_counts_as_use(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse(
		"// __var bl__A = a\n// __var bl__AB = ab\nbl__AB bl__AController\n",
	)
	require.NoError(t, err)

	assert.Empty(t, snippet.Lint(sn, ""))
}

func TestLint_clean_snippet(t *testing.T) {
	t.Parallel()

	sn, err := snippet.Parse(
		"// __var bl__CLASS_NAME = AppError\n" +
			"class bl__CLASS_NAME extends Error {}\n",
	)
	require.NoError(t, err)

	assert.Empty(t, snippet.Lint(sn, ""))
}

func TestWarning_String(t *testing.T) {
	t.Parallel()

	w := snippet.Warning{
		Kind:    snippet.WarnUnused,
		Line:    3,
		Message: "variable x is declared but never used",
	}

	assert.Equal(
		t,
		"unused: line 3: variable x is declared but never used",
		w.String(),
	)
}
