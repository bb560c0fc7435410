// Package snippet parses Boiler snippet files. A snippet is a text file whose
// header declares metadata (author, description, version) and template
// variables, followed by an opaque body containing variable tokens.
//
// Two header forms are accepted. The marker form uses comment lines such as
// "// __var bl__CLASS_NAME = AppError" in whatever comment syntax the host
// language uses. The delimited form opens with a "---boiler" line, holds a
// YAML document and closes with a "---" line, so it does not depend on any
// comment syntax. Both forms produce the same Snippet.
//
// Lint reports template-authoring problems (mismatched token prefixes,
// unused or undeclared variables) as warnings without failing the parse.
package snippet
