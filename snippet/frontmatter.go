package snippet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
)

const (
	frontMatterBegin = "---boiler"
	frontMatterEnd   = "---"
)

type frontMatter struct {
	Author      string           `yaml:"author"`
	Description string           `yaml:"description"`
	Version     scalarText       `yaml:"version"`
	Variables   []frontMatterVar `yaml:"variables"`
}

type frontMatterVar struct {
	Name    string     `yaml:"name"`
	Default scalarText `yaml:"default"`
}

// scalarText keeps a scalar as written, so 0755 stays 0755
// instead of going through YAML number typing.
type scalarText struct {
	Text string
	Set  bool
}

// UnmarshalYAML implements yaml.NodeUnmarshaler.
func (s *scalarText) UnmarshalYAML(node ast.Node) error {
	switch n := node.(type) {
	case *ast.NullNode:
		*s = scalarText{}
	case *ast.StringNode:
		*s = scalarText{Text: n.Value, Set: true}
	case *ast.LiteralNode:
		*s = scalarText{Text: n.Value.Value, Set: true}
	case *ast.TagNode:
		return s.UnmarshalYAML(n.Value)
	case ast.ScalarNode:
		*s = scalarText{Text: n.GetToken().Value, Set: true}
	default:
		return fmt.Errorf("expected a scalar, got %s", node.Type())
	}

	return nil
}

type generatedHeader struct {
	Author      string         `yaml:"author,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Version     int            `yaml:"version,omitempty"`
	Variables   []generatedVar `yaml:"variables,omitempty"`
}

type generatedVar struct {
	Name    string  `yaml:"name"`
	Default *string `yaml:"default,omitempty"`
}

func hasFrontMatter(text string) bool {
	first, _, _ := strings.Cut(text, "\n")

	return strings.TrimSpace(first) == frontMatterBegin
}

// splitFrontMatter returns the header lines between the
// begin/end markers and the body after the end marker.
func splitFrontMatter(text string) (string, string, error) {
	lines := strings.SplitAfter(text, "\n")

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(trimEOL(lines[i])) == frontMatterEnd {
			header := strings.Join(lines[1:i], "")
			body := strings.Join(lines[i+1:], "")

			return header, body, nil
		}
	}

	return "", "", &MalformedTemplateError{
		Line:   1,
		Reason: "unable to find end marker of ---boiler header",
	}
}

func parseFrontMatter(text string) (*Snippet, error) {
	header, body, err := splitFrontMatter(text)
	if err != nil {
		return nil, err
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, &MalformedTemplateError{
			Reason: "invalid ---boiler header: " + err.Error(),
		}
	}

	sn := &Snippet{
		Metadata: Metadata{
			Author:      fm.Author,
			Description: fm.Description,
		},
		Body:   body,
		Format: FormatFrontMatter,
	}

	if fm.Version.Set {
		raw := fm.Version.Text

		ver, err := strconv.Atoi(raw)
		if err != nil {
			return nil, &MalformedTemplateError{
				Reason: fmt.Sprintf(
					"version %q is not an integer", raw,
				),
			}
		}

		sn.Version = ver
	}

	tbl := newVarTable()

	for i, fv := range fm.Variables {
		name := strings.TrimSpace(fv.Name)
		if name == "" {
			return nil, &MalformedTemplateError{
				Reason: fmt.Sprintf(
					"variables[%d]: missing name", i,
				),
			}
		}

		v := Variable{Name: name}
		if fv.Default.Set {
			v.Default = fv.Default.Text
			v.HasDefault = true
		}

		if err := tbl.add(v); err != nil {
			return nil, err
		}
	}

	sn.Variables = tbl.vars

	return sn, nil
}

// Generate renders a delimited "---boiler" header for meta
// and vars, terminated by a newline.
func Generate(meta Metadata, vars []Variable) (string, error) {
	const errCtx = "generating header"

	fm := generatedHeader{
		Author:      meta.Author,
		Description: meta.Description,
		Version:     meta.Version,
	}

	for _, v := range vars {
		fv := generatedVar{Name: v.Name}
		if v.HasDefault {
			def := v.Default
			fv.Default = &def
		}

		fm.Variables = append(fm.Variables, fv)
	}

	out, err := yaml.Marshal(&fm)
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	var sb strings.Builder

	sb.WriteString(frontMatterBegin)
	sb.WriteByte('\n')
	sb.Write(out)

	if len(out) > 0 && out[len(out)-1] != '\n' {
		sb.WriteByte('\n')
	}

	sb.WriteString(frontMatterEnd)
	sb.WriteByte('\n')

	return sb.String(), nil
}
