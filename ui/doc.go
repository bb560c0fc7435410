// Package ui renders bl's terminal output with lipgloss styles and
// asks questions through huh forms. Assume stands in for the
// interactive prompter when the user passed --yes.
package ui
