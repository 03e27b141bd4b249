package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/plesql/plesql/internal/ast"
)

// Color palette
// - Default (white/black): Primary text
// - Accent (configurable, soft purple by default): routine names, targets, headers
// - Muted (gray): Secondary info, positions, timings
// - Severity colors apply to PRINT output only

const defaultAccent = "#A78BFA"

var accentColor = defaultAccent

var (
	// Accent style for routine names, persist targets, highlights
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent))

	// Muted style for secondary info, hints, positions
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))

	// Bold style for emphasis
	Bold = lipgloss.NewStyle().Bold(true)

	// AccentBold combines accent color with bold
	AccentBold = lipgloss.NewStyle().Foreground(lipgloss.Color(defaultAccent)).Bold(true)
)

var severityStyles = map[ast.Severity]lipgloss.Style{
	ast.SeverityDebug: Muted,
	ast.SeverityInfo:  lipgloss.NewStyle(),
	ast.SeverityWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	ast.SeverityError: lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Bold(true),
}

// SeverityStyle returns the style PRINT lines of the given severity use.
func SeverityStyle(s ast.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

// ConfigureTheme sets the accent color from a config value. Values such as
// "none" or an unparseable color turn the accent off.
func ConfigureTheme(accent string) {
	color, ok := normalizeAccentColor(accent)
	if !ok {
		accentColor = ""
		Accent = lipgloss.NewStyle()
		AccentBold = lipgloss.NewStyle().Bold(true)
		return
	}
	accentColor = color
	Accent = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	AccentBold = Accent.Bold(true)
}

// AccentColor returns the configured accent color, if any.
func AccentColor() (string, bool) {
	return accentColor, accentColor != ""
}

func normalizeAccentColor(s string) (string, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "none", "off", "default":
		return "", false
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = fmt.Sprintf("%c%c%c%c%c%c", hex[0], hex[0], hex[1], hex[1], hex[2], hex[2])
		}
		if len(hex) != 6 {
			return "", false
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", false
		}
		return "#" + hex, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 255 {
		return "", false
	}
	return strconv.Itoa(n), true
}
