// Package templating renders snippet bodies. Resolve merges declared defaults
// with caller overrides into bindings, failing with MissingVariableError when a
// variable has neither; Substitute replaces every token in a single pass,
// preferring the longest declared token at each position.
//
// The Engine type optionally carries stamp values that are expanded into
// resolved values with valyala/fasttemplate (single-brace "{author}" tags by
// default) before substitution. Expand renders a snippet file end to end and
// backs the standalone renderer binary.
package templating
