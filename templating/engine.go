package templating

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/boiler/snippet"
)

// Binding is the value resolved for one variable during a
// single render.
type Binding struct {
	Name  string
	Value string
}

// MissingVariableError reports a declared variable with
// neither an override nor a default.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf(
		"missing variable %s: no override and no default",
		e.Name,
	)
}

// Engine renders snippet bodies. The zero value renders
// without stamps.
type Engine struct {
	// StartTag and EndTag delimit stamp placeholders inside
	// variable values. Defaults are "{" and "}".
	StartTag string
	EndTag   string
	// Stamps are expanded into every resolved value before
	// substitution. Unknown placeholders are kept as-is.
	Stamps map[string]interface{}
}

// Render resolves vars against overrides and substitutes
// them into body using a zero Engine.
func Render(
	body string,
	vars []snippet.Variable,
	overrides map[string]string,
) (string, error) {
	var en Engine

	return en.Render(body, vars, overrides)
}

// Render resolves vars against overrides and substitutes
// every token in body in a single pass.
func (en *Engine) Render(
	body string,
	vars []snippet.Variable,
	overrides map[string]string,
) (string, error) {
	const errCtx = "rendering"

	bindings, err := en.Resolve(vars, overrides)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	return Substitute(body, bindings), nil
}

// RenderSnippet renders the body of sn.
func (en *Engine) RenderSnippet(
	sn *snippet.Snippet,
	overrides map[string]string,
) (string, error) {
	return en.Render(sn.Body, sn.Variables, overrides)
}

// Resolve produces one binding per declared variable, in
// declaration order. The override wins over the default.
// Every unresolvable variable is reported as a
// MissingVariableError; several are joined.
func (en *Engine) Resolve(
	vars []snippet.Variable,
	overrides map[string]string,
) ([]Binding, error) {
	bindings := make([]Binding, 0, len(vars))

	var errs []error

	for _, v := range vars {
		val, ok := overrides[v.Name]
		if !ok {
			if !v.HasDefault {
				errs = append(errs, &MissingVariableError{Name: v.Name})

				continue
			}

			val = v.Default
		}

		bindings = append(bindings, Binding{
			Name:  v.Name,
			Value: en.expandStamps(val),
		})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return bindings, nil
}

// expandStamps substitutes stamp placeholders in val.
func (en *Engine) expandStamps(val string) string {
	if len(en.Stamps) == 0 {
		return val
	}

	startTag, endTag := en.tags()

	return fasttemplate.ExecuteStringStd(
		val, startTag, endTag, en.Stamps,
	)
}

// tags returns the configured start/end tags, falling
// back to single-brace defaults.
func (en *Engine) tags() (string, string) {
	startTag := en.StartTag
	if startTag == "" {
		startTag = "{"
	}

	endTag := en.EndTag
	if endTag == "" {
		endTag = "}"
	}

	return startTag, endTag
}

// Substitute replaces every binding token in body with its
// value. At each position the longest matching token wins,
// and replaced text is never scanned again.
func Substitute(body string, bindings []Binding) string {
	if len(bindings) == 0 {
		return body
	}

	sorted := make([]Binding, len(bindings))
	copy(sorted, bindings)

	// strings.Replacer compares old strings in argument
	// order at each position.
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Name) > len(sorted[j].Name)
	})

	pairs := make([]string, 0, 2*len(sorted))
	for _, bi := range sorted {
		pairs = append(pairs, bi.Name, bi.Value)
	}

	return strings.NewReplacer(pairs...).Replace(body)
}

// Unused returns the override names that vars does not
// declare, sorted.
func Unused(
	vars []snippet.Variable,
	overrides map[string]string,
) []string {
	declared := make(map[string]bool, len(vars))
	for _, v := range vars {
		declared[v.Name] = true
	}

	var unused []string

	for name := range overrides {
		if !declared[name] {
			unused = append(unused, name)
		}
	}

	sort.Strings(unused)

	return unused
}

// ParseOverrides turns NAME=VALUE assignments into a map.
// Later assignments win.
func ParseOverrides(assignments []string) (map[string]string, error) {
	const errCtx = "parsing overrides"

	overrides := make(map[string]string, len(assignments))

	for _, as := range assignments {
		name, val, ok := strings.Cut(as, "=")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, fmt.Errorf(
				"%s: override must be NAME=value, got %q",
				errCtx, as,
			)
		}

		overrides[name] = val
	}

	return overrides, nil
}

// Expand reads a snippet, renders it with the NAME=VALUE
// assignments in vars, and writes the result. An empty
// tplPath reads stdin and an empty outPath writes stdout.
// If executable is true the output file receives mode 0777
// instead of 0666.
func (en *Engine) Expand(
	tplPath string,
	outPath string,
	vars []string,
	executable bool,
) error {
	const errCtx = "expanding snippet"

	overrides, err := ParseOverrides(vars)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	content, err := en.readTemplate(tplPath)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	sn, err := snippet.Parse(string(content))
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	rendered, err := en.RenderSnippet(sn, overrides)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	out, closer, err := en.openOutput(outPath, executable)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if closer != nil {
		defer closer()
	}

	if _, err := io.WriteString(out, rendered); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// readTemplate reads the snippet from a file path. If
// tplPath is empty it reads from stdin.
func (en *Engine) readTemplate(
	tplPath string,
) ([]byte, error) {
	const errCtx = "reading snippet"

	if tplPath != "" {
		content, err := os.ReadFile(tplPath) //nolint:gosec // paths from CLI flags
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		return content, nil
	}

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: reading stdin: %w", errCtx, err,
		)
	}

	return content, nil
}

// openOutput returns a writer for the result. When
// outPath is empty it returns stdout. The returned
// closer function must be called to finalize the file
// (may be nil for stdout).
func (en *Engine) openOutput(
	outPath string,
	executable bool,
) (io.Writer, func(), error) {
	const errCtx = "opening output"

	if outPath == "" {
		return os.Stdout, nil, nil
	}

	var perm os.FileMode = 0o666
	if executable {
		perm = 0o777
	}

	fi, err := os.OpenFile( //nolint:gosec // paths from CLI flags
		outPath,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC,
		perm,
	)
	if err != nil {
		return nil, nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	return fi, func() {
		_ = fi.Close() //nolint:errcheck // best-effort close
	}, nil
}
