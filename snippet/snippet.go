package snippet

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// HeaderFormat tells which header syntax a snippet used.
type HeaderFormat int

const (
	// FormatNone means the file had no header; the whole
	// text is body.
	FormatNone HeaderFormat = iota
	// FormatMarkers is the comment-marker header
	// ("// __var NAME = value").
	FormatMarkers
	// FormatFrontMatter is the delimited "---boiler" header.
	FormatFrontMatter
)

// Variable is a declared template variable. Name doubles as
// the literal token replaced in the body.
type Variable struct {
	Name       string
	Default    string
	HasDefault bool
	// Line is the 1-based header line of the first
	// declaration, zero when unknown.
	Line int
}

// Metadata holds the informational header fields.
type Metadata struct {
	Author      string
	Description string
	Version     int
}

// Snippet is a parsed snippet file. It is never mutated
// after Parse returns.
type Snippet struct {
	Metadata

	Variables []Variable
	Body      string
	Format    HeaderFormat
}

// Names returns the declared variable names in declaration
// order.
func (sn *Snippet) Names() []string {
	names := make([]string, 0, len(sn.Variables))
	for _, v := range sn.Variables {
		names = append(names, v.Name)
	}

	return names
}

// Lookup returns the declared variable called name.
func (sn *Snippet) Lookup(name string) (Variable, bool) {
	for _, v := range sn.Variables {
		if v.Name == name {
			return v, true
		}
	}

	return Variable{}, false
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parse splits text into metadata, variables and body. A
// text starting with a "---boiler" line is parsed as a
// delimited header, anything else as a marker header.
func Parse(text string) (*Snippet, error) {
	if hasFrontMatter(text) {
		return parseFrontMatter(text)
	}

	return parseMarkers(text)
}

// ParseFile reads and parses the snippet at path.
func ParseFile(path string) (*Snippet, error) {
	const errCtx = "parsing snippet file"

	content, err := os.ReadFile(path) //nolint:gosec // caller-provided path
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	sn, err := Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return sn, nil
}

// varTable accumulates declarations in order and rejects
// conflicting redeclarations.
type varTable struct {
	vars  []Variable
	index map[string]int
}

func newVarTable() *varTable {
	return &varTable{index: make(map[string]int)}
}

func (vt *varTable) add(v Variable) error {
	if !identRe.MatchString(v.Name) {
		return &MalformedTemplateError{
			Line:   v.Line,
			Reason: fmt.Sprintf("invalid variable name %q", v.Name),
		}
	}

	idx, ok := vt.index[v.Name]
	if !ok {
		vt.index[v.Name] = len(vt.vars)
		vt.vars = append(vt.vars, v)

		return nil
	}

	prev := vt.vars[idx]
	if prev.HasDefault == v.HasDefault && prev.Default == v.Default {
		return nil
	}

	return &ConflictingDefaultError{
		Name:   v.Name,
		Line:   v.Line,
		First:  prev,
		Second: v,
	}
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}

	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'') {
		return s[1 : len(s)-1]
	}

	return s
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}
