package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)
)

const banner = `
██████╗  ██████╗ ██╗██╗     ███████╗██████╗
██╔══██╗██╔═══██╗██║██║     ██╔════╝██╔══██╗
██████╔╝██║   ██║██║██║     █████╗  ██████╔╝
██╔══██╗██║   ██║██║██║     ██╔══╝  ██╔══██╗
██████╔╝╚██████╔╝██║███████╗███████╗██║  ██║
╚═════╝  ╚═════╝ ╚═╝╚══════╝╚══════╝╚═╝  ╚═╝
`

// Printer writes styled messages. Styles degrade to plain
// text when the output is not a terminal.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// NewPrinter returns a Printer writing to out and errOut.
func NewPrinter(out io.Writer, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

func (p *Printer) line(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s)
}

// Title prints a bold heading.
func (p *Printer) Title(format string, args ...interface{}) {
	p.line(p.Out, primaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Success prints a check-marked message.
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(p.Out, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warn prints a warning to the error stream.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.line(p.Err, warningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Error prints a failure to the error stream.
func (p *Printer) Error(format string, args ...interface{}) {
	p.line(p.Err, errorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Info prints plain text.
func (p *Printer) Info(format string, args ...interface{}) {
	p.line(p.Out, fmt.Sprintf(format, args...))
}

// Faint prints de-emphasised text.
func (p *Printer) Faint(format string, args ...interface{}) {
	p.line(p.Out, faintStyle.Render(fmt.Sprintf(format, args...)))
}

// Field prints an aligned "label value" row.
func (p *Printer) Field(label string, value interface{}) {
	p.line(p.Out, "  "+labelStyle.Render(label)+fmt.Sprint(value))
}

// Banner prints the logo and version.
func (p *Printer) Banner(version string) {
	p.line(p.Out, primaryStyle.Render(banner))
	p.line(p.Out, faintStyle.Render("Code Snippet & Stack Manager"))
	p.line(p.Out, successStyle.Render("Version: ")+warningStyle.Render(version))
}
