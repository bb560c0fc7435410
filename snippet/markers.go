package snippet

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// declRe matches a declaration line in any common comment
// syntax. Group 1 is the keyword, group 2 the remainder.
var declRe = regexp.MustCompile(
	`^\s*(?:(?://+|#+|--|;+|/\*+|<!--|\*)\s*)?` +
		`__(author|desc|version|var)(?:\s+(.*?))?\s*(?:\*/|-->)?\s*$`,
)

// blockFences maps a block comment opener that sits alone on
// a line to its closer.
var blockFences = map[string]string{
	"/*":   "*/",
	"/**":  "*/",
	"<!--": "-->",
	`"""`:  `"""`,
	"'''":  "'''",
}

// parseMarkers parses a comment-marker header. The header is
// the leading run of declaration and blank lines, optionally
// wrapped in block comments whose opener and closer sit alone
// on their lines. The body starts at the first other line.
func parseMarkers(text string) (*Snippet, error) {
	lines := strings.SplitAfter(text, "\n")

	sn := &Snippet{}
	tbl := newVarTable()
	bodyStart := len(lines)
	declared := false

	var (
		closer    string // of the open block, if any
		openedAt  = -1
		blockDecl bool
	)

	for i, raw := range lines {
		line := trimEOL(raw)
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			continue
		}

		if closer != "" && trimmed == closer {
			if !blockDecl {
				bodyStart = openedAt
				closer = ""

				break
			}

			closer = ""

			continue
		}

		if closer == "" {
			if c, ok := blockFences[trimmed]; ok {
				closer = c
				openedAt = i
				blockDecl = false

				continue
			}
		}

		m := declRe.FindStringSubmatch(line)
		if m == nil {
			if closer != "" {
				// Free text inside a comment block.
				continue
			}

			bodyStart = i

			break
		}

		declared = true
		blockDecl = true

		if err := applyDecl(sn, tbl, m[1], m[2], i+1); err != nil {
			return nil, err
		}

		if closer != "" && strings.HasSuffix(trimmed, closer) {
			closer = ""
		}
	}

	if !declared {
		return &Snippet{Body: text, Format: FormatNone}, nil
	}

	if closer != "" && !blockDecl {
		bodyStart = openedAt
		closer = ""
	}

	if closer != "" {
		return nil, &MalformedTemplateError{
			Line:   openedAt + 1,
			Reason: fmt.Sprintf("comment block opened here is never closed with %s", closer),
		}
	}

	sn.Variables = tbl.vars
	sn.Body = strings.Join(lines[bodyStart:], "")
	sn.Format = FormatMarkers

	return sn, nil
}

func applyDecl(
	sn *Snippet,
	tbl *varTable,
	keyword string,
	rest string,
	lineNo int,
) error {
	rest = strings.TrimSpace(rest)

	switch keyword {
	case "author":
		sn.Author = rest
	case "desc":
		sn.Description = rest
	case "version":
		if rest == "" {
			return nil
		}

		ver, err := strconv.Atoi(rest)
		if err != nil {
			return &MalformedTemplateError{
				Line: lineNo,
				Reason: fmt.Sprintf(
					"version %q is not an integer", rest,
				),
			}
		}

		sn.Version = ver
	case "var":
		vars, err := parseVarDecl(rest, lineNo)
		if err != nil {
			return err
		}

		for _, v := range vars {
			if err := tbl.add(v); err != nil {
				return err
			}
		}
	}

	return nil
}

// parseVarDecl parses "NAME[, NAME...]" or "NAME = default".
func parseVarDecl(rest string, lineNo int) ([]Variable, error) {
	namesPart := rest

	var (
		def    string
		hasDef bool
	)

	if idx := strings.Index(rest, "="); idx >= 0 {
		namesPart = rest[:idx]
		def = unquote(strings.TrimSpace(rest[idx+1:]))
		hasDef = true
	}

	var vars []Variable

	for _, name := range strings.Split(namesPart, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		if !identRe.MatchString(name) {
			return nil, &MalformedTemplateError{
				Line:   lineNo,
				Reason: fmt.Sprintf("invalid variable name %q", name),
			}
		}

		vars = append(vars, Variable{
			Name:       name,
			Default:    def,
			HasDefault: hasDef,
			Line:       lineNo,
		})
	}

	switch {
	case len(vars) == 0 && hasDef:
		return nil, &MalformedTemplateError{
			Line:   lineNo,
			Reason: "default assigned without a variable name",
		}
	case len(vars) == 0:
		return nil, &MalformedTemplateError{
			Line:   lineNo,
			Reason: "__var declaration without a variable name",
		}
	case hasDef && len(vars) > 1:
		return nil, &MalformedTemplateError{
			Line:   lineNo,
			Reason: "a default may only be assigned to a single variable",
		}
	}

	return vars, nil
}

// GenerateMarkers renders a comment-marker header using
// commentPrefix (e.g. "// "). Block comment openers get the
// matching closer appended.
func GenerateMarkers(
	meta Metadata,
	vars []Variable,
	commentPrefix string,
) string {
	closer := ""

	switch trimmed := strings.TrimSpace(commentPrefix); {
	case strings.HasPrefix(trimmed, "/*"):
		closer = " */"
	case strings.HasPrefix(trimmed, "<!--"):
		closer = " -->"
	}

	var sb strings.Builder

	line := func(keyword, value string) {
		sb.WriteString(commentPrefix)
		sb.WriteString("__")
		sb.WriteString(keyword)

		if value != "" {
			sb.WriteByte(' ')
			sb.WriteString(value)
		}

		sb.WriteString(closer)
		sb.WriteByte('\n')
	}

	line("author", meta.Author)
	line("desc", meta.Description)

	if meta.Version > 0 {
		line("version", strconv.Itoa(meta.Version))
	}

	for _, v := range vars {
		if v.HasDefault {
			line("var", v.Name+" = "+v.Default)

			continue
		}

		line("var", v.Name)
	}

	return sb.String()
}
