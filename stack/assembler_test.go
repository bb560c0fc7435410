package stack_test

import (
	"context"
	"os"
	"io/fs"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/boiler/scaffold"
	"github.com/byte4ever/boiler/stack"
	"github.com/byte4ever/boiler/templating"
)

func readFile(tb testing.TB, pa string) string {
	tb.Helper()

	by, err := os.ReadFile(pa) //nolint:gosec // test file
	require.NoError(tb, err)

	return string(by)
}

func TestApply_express_auth(t *testing.T) {
	t.Parallel()

	st, err := stack.Load("../examples/express-auth")
	require.NoError(t, err)

	target := t.TempDir()

	var as stack.Assembler

	report, err := as.Apply(
		context.Background(),
		st,
		target,
		map[string]string{"bl__JWT_SECRET": "abc"},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Succeeded())
	assert.Equal(t, 0, report.Failed())
	require.NoError(t, report.Err())
	assert.Empty(t, report.Unused)

	dests := make([]string, 0, len(report.Results))
	for _, re := range report.Results {
		dests = append(dests, re.Dest)
		assert.Equal(t, scaffold.Created, re.Outcome, re.Dest)
	}

	assert.Equal(
		t,
		[]string{
			"utils/appError.js",
			"middlewares/auth.mid.js",
			"routes/auth.routes.js",
		},
		dests,
	)

	mid := readFile(t, filepath.Join(target, "middlewares", "auth.mid.js"))
	assert.Contains(t, mid, "|| 'abc'")
	assert.Contains(t, mid, "req.cookies?.accessToken")
	assert.NotContains(t, mid, "__var")

	routes := readFile(t, filepath.Join(target, "routes", "auth.routes.js"))
	assert.Contains(t, routes, "router.post('/auth/login', login);")
	assert.NotContains(t, routes, "---boiler")

	appError := readFile(t, filepath.Join(target, "utils", "appError.js"))
	assert.Contains(t, appError, "export class AppError extends Error")
	assert.Contains(t, appError, `message = "Internal Server Error"`)
}

func TestApply_missing_secret_fails_one_file(t *testing.T) {
	t.Parallel()

	st, err := stack.Load("../examples/express-auth")
	require.NoError(t, err)

	target := t.TempDir()

	var as stack.Assembler

	report, err := as.Apply(context.Background(), st, target, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Succeeded())
	assert.Equal(t, 1, report.Failed())

	failed := report.Results[1]
	assert.Equal(t, "middlewares/auth.mid.js", failed.Dest)
	assert.Equal(t, scaffold.Failed, failed.Outcome)

	var mve *templating.MissingVariableError
	require.ErrorAs(t, failed.Err, &mve)
	assert.Equal(t, "bl__JWT_SECRET", mve.Name)

	// No rollback: the other files stay written.
	assert.FileExists(t, filepath.Join(target, "utils", "appError.js"))
	assert.FileExists(t, filepath.Join(target, "routes", "auth.routes.js"))
	assert.NoFileExists(t, filepath.Join(target, "middlewares", "auth.mid.js"))
}

func TestApply_precedence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{
  "id": "prec", "version": "1",
  "set": {"bl__A": "stack", "bl__B": "stack", "bl__C": "stack"},
  "files": [{"snippet": "s.txt", "dest": "out.txt", "set": {"bl__B": "entry", "bl__C": "entry"}}]
}`)
	writeTemp(t, dir, "s.txt",
		"# __var bl__A = def\n# __var bl__B = def\n# __var bl__C = def\n# __var bl__D = def\n"+
			"bl__A bl__B bl__C bl__D\n")

	st, err := stack.Load(dir)
	require.NoError(t, err)

	target := t.TempDir()
	as := stack.Assembler{}

	report, err := as.Apply(
		context.Background(), st, target,
		map[string]string{"bl__C": "cli"},
	)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, "stack entry cli def\n", readFile(t, filepath.Join(target, "out.txt")))
}

func TestApply_without_files_walks_directory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "walk", "version": "1", "ignore": ["*.tmp"]}`)
	writeTemp(t, dir, "src/bl__NAME.go", "// __var bl__NAME = app\npackage bl__NAME\n")
	writeTemp(t, dir, "README.md", "plain bl__NAME\n")
	writeTemp(t, dir, "scratch.tmp", "x")

	st, err := stack.Load(dir)
	require.NoError(t, err)

	target := t.TempDir()
	as := stack.Assembler{}

	report, err := as.Apply(
		context.Background(), st, target,
		map[string]string{"bl__NAME": "svc", "bl__EXTRA": "x"},
	)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	require.Len(t, report.Results, 2)
	assert.Equal(t, "README.md", report.Results[0].Dest)
	assert.Equal(t, "src/svc.go", report.Results[1].Dest)
	assert.Equal(t, []string{"bl__EXTRA"}, report.Unused)

	assert.Equal(t, "package svc\n", readFile(t, filepath.Join(target, "src", "svc.go")))
	// Files without declarations are copied verbatim.
	assert.Equal(t, "plain bl__NAME\n", readFile(t, filepath.Join(target, "README.md")))
	assert.NoFileExists(t, filepath.Join(target, stack.ManifestJSON))
}

func TestApply_duplicate_destination(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "dup", "version": "1", "files": [
  {"snippet": "a.txt", "dest": "out.txt"},
  {"snippet": "b.txt", "dest": "./out.txt"}
]}`)
	writeTemp(t, dir, "a.txt", "a\n")
	writeTemp(t, dir, "b.txt", "b\n")

	st, err := stack.Load(dir)
	require.NoError(t, err)

	target := t.TempDir()
	as := stack.Assembler{}

	report, err := as.Apply(context.Background(), st, target, nil)
	require.NoError(t, err)

	assert.True(t, report.Results[0].OK())
	require.ErrorIs(t, report.Results[1].Err, stack.ErrDuplicateDestination)
	assert.Equal(t, "a\n", readFile(t, filepath.Join(target, "out.txt")))
}

func TestApply_destination_escaping_target(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "esc", "version": "1", "files": [
  {"snippet": "a.txt", "dest": "../outside.txt"}
]}`)
	writeTemp(t, dir, "a.txt", "a\n")

	st, err := stack.Load(dir)
	require.NoError(t, err)

	as := stack.Assembler{}

	report, err := as.Apply(context.Background(), st, t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed())
	assert.Contains(t, report.Results[0].Err.Error(), "escapes")
}

func TestApply_snippet_outside_stack_dir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "esc", "version": "1", "files": [
  {"snippet": "../../etc/passwd", "dest": "p"}
]}`)

	st, err := stack.Load(dir)
	require.NoError(t, err)

	as := stack.Assembler{}

	_, err = as.Apply(context.Background(), st, t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "files[0]")
}

func TestApply_ref_entries_use_resolver(t *testing.T) {
	t.Parallel()

	storeDir := t.TempDir()
	logger := writeTemp(t, storeDir, "logger@2.js", "// __var bl__LEVEL = info\nlevel = 'bl__LEVEL'\n")

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "refs", "version": "1", "files": [
  {"ref": "logger", "dest": "src/logger.js"}
]}`)

	st, err := stack.Load(dir)
	require.NoError(t, err)

	var asked string

	as := stack.Assembler{
		Resolver: stack.ResolverFunc(func(ref string) (string, error) {
			asked = ref

			return logger, nil
		}),
	}

	target := t.TempDir()

	report, err := as.Apply(context.Background(), st, target, map[string]string{"bl__LEVEL": "debug"})
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.Equal(t, "logger", asked)
	assert.Equal(t, "level = 'debug'\n", readFile(t, filepath.Join(target, "src", "logger.js")))
}

func TestApply_ref_without_resolver(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "refs", "version": "1", "files": [
  {"ref": "logger", "dest": "logger.js"}
]}`)

	st, err := stack.Load(dir)
	require.NoError(t, err)

	as := stack.Assembler{}

	_, err = as.Apply(context.Background(), st, t.TempDir(), nil)
	assert.ErrorContains(t, err, "no store")
}

func TestApply_existing_files_force_and_unchanged(t *testing.T) {
	t.Parallel()

	st, err := stack.Load("../examples/express-auth")
	require.NoError(t, err)

	target := t.TempDir()
	overrides := map[string]string{"bl__JWT_SECRET": "abc"}

	first := stack.Assembler{}
	_, err = first.Apply(context.Background(), st, target, overrides)
	require.NoError(t, err)

	// Same content again: unchanged, even without force.
	report, err := first.Apply(context.Background(), st, target, overrides)
	require.NoError(t, err)

	for _, re := range report.Results {
		assert.Equal(t, scaffold.Unchanged, re.Outcome, re.Dest)
	}

	// Different content without force fails per file.
	changed := map[string]string{"bl__JWT_SECRET": "xyz"}

	report, err = first.Apply(context.Background(), st, target, changed)
	require.NoError(t, err)
	require.ErrorIs(t, report.Results[1].Err, scaffold.ErrExists)
	assert.Equal(t, scaffold.Unchanged, report.Results[0].Outcome)

	forced := stack.Assembler{Force: true, Parallelism: 3}

	report, err = forced.Apply(context.Background(), st, target, changed)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, scaffold.Overwritten, report.Results[1].Outcome)
}

func TestApply_dry_run(t *testing.T) {
	t.Parallel()

	st, err := stack.Load("../examples/express-auth")
	require.NoError(t, err)

	target := t.TempDir()
	as := stack.Assembler{DryRun: true}

	report, err := as.Apply(
		context.Background(), st, target,
		map[string]string{"bl__JWT_SECRET": "abc"},
	)
	require.NoError(t, err)

	for _, re := range report.Results {
		assert.Equal(t, scaffold.Planned, re.Outcome)
	}

	entries, err := os.ReadDir(target)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestApply_parallel_keeps_order(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "many", "version": "1"}`)

	names := []string{"a.txt", "b.txt", "c.txt", "d.txt", "e.txt", "f.txt"}
	for _, n := range names {
		writeTemp(t, dir, n, n)
	}

	st, err := stack.Load(dir)
	require.NoError(t, err)

	as := stack.Assembler{Parallelism: 4}

	report, err := as.Apply(context.Background(), st, t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	for i, re := range report.Results {
		assert.Equal(t, names[i], re.Dest)
	}
}

func TestApply_cancelled_context(t *testing.T) {
	t.Parallel()

	st, err := stack.Load("../examples/express-auth")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	as := stack.Assembler{}

	report, err := as.Apply(ctx, st, t.TempDir(), map[string]string{"bl__JWT_SECRET": "abc"})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Failed())
	assert.ErrorIs(t, report.Err(), context.Canceled)
}

func TestApplySnippet(t *testing.T) {
	t.Parallel()

	target := t.TempDir()
	as := stack.Assembler{
		Engine: &templating.Engine{
			Stamps: map[string]interface{}{"author": "alice"},
		},
	}

	report := as.ApplySnippet(
		context.Background(),
		"../examples/snippets/errorHandler.js",
		"utils/errorHandler.js",
		target,
		map[string]string{"bl__STATUS_CODE": "503"},
	)
	require.NoError(t, report.Err())
	assert.Equal(t, "errorHandler.js", report.Name)

	got := readFile(t, filepath.Join(target, "utils", "errorHandler.js"))
	assert.Contains(t, got, "export const asyncHandler = ")
	assert.Contains(t, got, "err.statusCode || 503")
}

func TestApplySnippet_destination_mode(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not portable")
	}

	tests := []struct {
		name  string
		store fs.FileMode
		want  fs.FileMode
	}{
		{"private store file", 0o600, 0o644},
		{"executable", 0o700, 0o755},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := filepath.Join(t.TempDir(), "run.sh")
			require.NoError(t, os.WriteFile(src, []byte("# __var bl__X = y\necho bl__X\n"), tt.store))

			target := t.TempDir()
			as := stack.Assembler{Engine: &templating.Engine{}}

			report := as.ApplySnippet(context.Background(), src, "run.sh", target, nil)
			require.NoError(t, report.Err())

			info, err := os.Stat(filepath.Join(target, "run.sh"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Mode().Perm())
		})
	}
}

func TestApply_lint_warnings_reported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTemp(t, dir, stack.ManifestJSON, `{"id": "lint", "version": "1"}`)
	writeTemp(t, dir, "a.txt", "# __var bl__A = x\nbl__A bl_A\n")

	st, err := stack.Load(dir)
	require.NoError(t, err)

	as := stack.Assembler{}

	report, err := as.Apply(context.Background(), st, t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, report.Err())

	assert.NotEmpty(t, report.Results[0].Warnings)
}
