package snippet

import (
	"errors"
	"fmt"
)

// ErrMalformedTemplate is matched by every header parsing
// failure, including conflicting defaults.
var ErrMalformedTemplate = errors.New("malformed template")

// MalformedTemplateError reports a header that cannot be
// parsed. Line is 1-based and zero when unknown.
type MalformedTemplateError struct {
	Line   int
	Reason string
}

func (e *MalformedTemplateError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf(
			"malformed template: line %d: %s",
			e.Line, e.Reason,
		)
	}

	return "malformed template: " + e.Reason
}

// Unwrap lets errors.Is match ErrMalformedTemplate.
func (e *MalformedTemplateError) Unwrap() error {
	return ErrMalformedTemplate
}

// ConflictingDefaultError reports a variable declared twice
// with different defaults. A declaration with a default and
// one without count as different.
type ConflictingDefaultError struct {
	Name   string
	Line   int
	First  Variable
	Second Variable
}

func (e *ConflictingDefaultError) Error() string {
	return fmt.Sprintf(
		"malformed template: line %d: variable %s declared"+
			" with conflicting defaults %s and %s",
		e.Line, e.Name,
		describeDefault(e.First), describeDefault(e.Second),
	)
}

// Unwrap lets errors.Is match ErrMalformedTemplate.
func (e *ConflictingDefaultError) Unwrap() error {
	return ErrMalformedTemplate
}

func describeDefault(v Variable) string {
	if !v.HasDefault {
		return "<none>"
	}

	return fmt.Sprintf("%q", v.Default)
}
