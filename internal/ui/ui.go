// Package ui prints status lines for coalesce on stderr.
package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF") // Cyan: headings
	colorAccent  = lipgloss.Color("#FFD700") // Gold: warnings
	colorSuccess = lipgloss.Color("#00E676") // Green: completed
	colorDanger  = lipgloss.Color("#FF5252") // Red: errors
	colorMuted   = lipgloss.Color("#636363") // Gray: de-emphasized
)

var (
	styleHeading = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	styleWarn    = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
)

// Printer writes human-oriented progress output. Debug lines are shown
// only when Verbose is set.
type Printer struct {
	Out     io.Writer
	Verbose bool
}

// New returns a Printer writing to stderr.
func New(verbose bool) *Printer {
	return &Printer{Out: os.Stderr, Verbose: verbose}
}

func (p *Printer) Heading(msg string) {
	fmt.Fprintln(p.Out, styleHeading.Render("◆ "+msg))
}

func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.Out, styleMuted.Render(msg))
}

// Debug prints msg only in verbose mode.
func (p *Printer) Debug(format string, args ...any) {
	if !p.Verbose {
		return
	}
	fmt.Fprintln(p.Out, styleMuted.Render("· "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(msg string) {
	fmt.Fprintln(p.Out, styleSuccess.Render("✓ ")+msg)
}

func (p *Printer) Warn(msg string) {
	fmt.Fprintln(p.Out, styleWarn.Render("⚠ ")+msg)
}

func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.Out, styleError.Render("error: ")+msg)
}
