package ui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// DefaultTermWidth is the fallback terminal width when detection fails.
const DefaultTermWidth = 120

// DisplayContext holds display parameters for one output stream.
type DisplayContext struct {
	TermWidth int  // detected or fallback terminal width
	IsTTY     bool // whether the stream is a terminal
	Color     bool // whether styles should emit ANSI sequences
}

// NewDisplayContext inspects w. colorMode is "auto", "always" or "never";
// auto enables color only for terminals without NO_COLOR set.
func NewDisplayContext(w io.Writer, colorMode string) *DisplayContext {
	d := &DisplayContext{TermWidth: DefaultTermWidth}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		d.IsTTY = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		if d.IsTTY {
			if width, _, err := term.GetSize(fd); err == nil && width > 0 {
				d.TermWidth = width
			}
		}
	}
	switch strings.ToLower(colorMode) {
	case "always":
		d.Color = true
	case "never":
		d.Color = false
	default:
		_, noColor := os.LookupEnv("NO_COLOR")
		d.Color = d.IsTTY && !noColor
	}
	return d
}

// NewDisplayContextWithWidth creates a DisplayContext with a fixed width (for testing).
func NewDisplayContextWithWidth(width int) *DisplayContext {
	return &DisplayContext{
		TermWidth: width,
		IsTTY:     true,
	}
}

// Apply sets the global lipgloss color profile to match the context.
func (d *DisplayContext) Apply() {
	if d.Color {
		lipgloss.SetColorProfile(termenv.ANSI256)
		return
	}
	lipgloss.SetColorProfile(termenv.Ascii)
}

// AvailableWidth returns the usable width after accounting for left margin.
func (d *DisplayContext) AvailableWidth(leftMargin int) int {
	return d.TermWidth - leftMargin
}
