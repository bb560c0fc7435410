package snippet

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultPrefix is the token prefix template authors are
// expected to use.
const DefaultPrefix = "bl__"

// WarningKind classifies a lint warning.
type WarningKind string

const (
	// WarnPrefix flags a declared name without the prefix.
	WarnPrefix WarningKind = "prefix"
	// WarnMismatchedToken flags a body token using a
	// near-miss prefix such as "bl_" instead of "bl__".
	WarnMismatchedToken WarningKind = "mismatched-token"
	// WarnUndeclared flags a prefixed body token that no
	// declaration covers; it survives rendering verbatim.
	WarnUndeclared WarningKind = "undeclared"
	// WarnUnused flags a declared variable that never
	// appears in the body.
	WarnUnused WarningKind = "unused"
)

// Warning is a template-authoring problem. Line is 1-based
// within the body for token warnings and within the header
// for declaration warnings; zero when unknown.
type Warning struct {
	Kind    WarningKind
	Name    string
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", w.Kind, w.Line, w.Message)
	}

	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// Lint checks sn against the prefix convention. An empty
// prefix selects DefaultPrefix.
func Lint(sn *Snippet, prefix string) []Warning {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	// "bl__" -> "bl_": tokens sharing the root are candidates
	// for a mismatched prefix.
	root := strings.TrimRight(prefix, "_") + "_"

	var warnings []Warning

	for _, v := range sn.Variables {
		if !strings.HasPrefix(v.Name, prefix) {
			warnings = append(warnings, Warning{
				Kind: WarnPrefix,
				Name: v.Name,
				Line: v.Line,
				Message: fmt.Sprintf(
					"variable %s does not use the %s prefix",
					v.Name, prefix,
				),
			})
		}
	}

	names := sn.Names()
	sort.SliceStable(names, func(i, j int) bool {
		return len(names[i]) > len(names[j])
	})

	used := make(map[string]bool, len(names))
	seen := make(map[string]bool)

	for _, name := range names {
		if !strings.HasPrefix(name, root) && strings.Contains(sn.Body, name) {
			used[name] = true
		}
	}

	identRe := regexp.MustCompile(`\b` + regexp.QuoteMeta(root) + `\w*`)

	for i, line := range strings.Split(sn.Body, "\n") {
		for _, ident := range identRe.FindAllString(line, -1) {
			if match := longestPrefix(ident, names); match != "" {
				used[match] = true

				continue
			}

			if seen[ident] {
				continue
			}

			seen[ident] = true

			warnings = append(warnings, tokenWarning(ident, prefix, root, i+1, sn))
		}
	}

	for _, v := range sn.Variables {
		if !used[v.Name] {
			warnings = append(warnings, Warning{
				Kind: WarnUnused,
				Name: v.Name,
				Line: v.Line,
				Message: fmt.Sprintf(
					"variable %s is declared but never used", v.Name,
				),
			})
		}
	}

	return warnings
}

func tokenWarning(
	ident string,
	prefix string,
	root string,
	line int,
	sn *Snippet,
) Warning {
	if strings.HasPrefix(ident, prefix) {
		return Warning{
			Kind: WarnUndeclared,
			Name: ident,
			Line: line,
			Message: fmt.Sprintf(
				"token %s is not declared and will not be substituted",
				ident,
			),
		}
	}

	msg := fmt.Sprintf("token %s does not use the %s prefix", ident, prefix)

	suggested := prefix + strings.TrimLeft(strings.TrimPrefix(ident, root), "_")
	if _, ok := sn.Lookup(suggested); ok {
		msg = fmt.Sprintf(
			"token %s looks like %s but uses a different prefix",
			ident, suggested,
		)
	}

	return Warning{
		Kind:    WarnMismatchedToken,
		Name:    ident,
		Line:    line,
		Message: msg,
	}
}

// longestPrefix returns the first of names (sorted longest
// first) that ident starts with.
func longestPrefix(ident string, names []string) string {
	for _, name := range names {
		if strings.HasPrefix(ident, name) {
			return name
		}
	}

	return ""
}
