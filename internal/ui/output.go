package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/plesql/plesql/internal/errs"
)

// Status symbols lead one-line outcome messages.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolInfo    = "ℹ"
)

var (
	successSymbol = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")).Render(SymbolSuccess)
	errorSymbol   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")).Render(SymbolError)
)

func Success(msg string) string { return successSymbol + " " + msg }

func Successf(format string, args ...any) string { return Success(fmt.Sprintf(format, args...)) }

func Error(msg string) string { return errorSymbol + " " + msg }

func Info(msg string) string { return Muted.Render(SymbolInfo) + " " + msg }

func Header(msg string) string { return Bold.Render(msg) }

// Name styles a routine name, persist target or file path.
func Name(s string) string { return Accent.Render(s) }

func Hint(msg string) string { return Muted.Render(msg) }

// Elapsed formats a run duration, e.g. "(12ms)".
func Elapsed(d time.Duration) string {
	if d < time.Millisecond {
		return Muted.Render(fmt.Sprintf("(%dµs)", d.Microseconds()))
	}
	return Muted.Render(fmt.Sprintf("(%s)", d.Round(time.Millisecond)))
}

// LanguageError renders an engine error as "✗ Kind: message (line L,
// column C)". The wrapped cause is appended to the message.
func LanguageError(e *errs.Error) string {
	parts := make([]string, 0, 2)
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	msg := Bold.Render(string(e.Kind)) + ": " + strings.Join(parts, ": ")
	if e.Line > 0 {
		msg += " " + Muted.Render(fmt.Sprintf("(line %d, column %d)", e.Line, e.Column))
	}
	return Error(msg)
}

// Count renders "(1 result)" or "(3 results)".
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("(%d %s)", n, noun)
}
