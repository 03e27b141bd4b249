package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/plesql/plesql/internal/ast"
)

// Console writes PRINT output to a stream, one line per message. Messages
// below the minimum severity are dropped. Concurrent runs may share one
// Console; lines are never interleaved.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	min      ast.Severity
	prefix   bool
	colorize bool
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithMinSeverity drops messages ranked below min.
func WithMinSeverity(min ast.Severity) ConsoleOption {
	return func(c *Console) { c.min = min }
}

// WithSeverityPrefix prefixes each line with its severity, e.g. "[WARN]".
func WithSeverityPrefix() ConsoleOption {
	return func(c *Console) { c.prefix = true }
}

// WithColor styles lines by severity.
func WithColor(on bool) ConsoleOption {
	return func(c *Console) { c.colorize = on }
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w, min: ast.SeverityDebug}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Emit writes one PRINT message.
func (c *Console) Emit(_ context.Context, message string, severity ast.Severity) error {
	if severity.Rank() < c.min.Rank() {
		return nil
	}
	line := message
	if c.prefix {
		line = fmt.Sprintf("[%s] %s", severity, message)
	}
	if c.colorize {
		line = SeverityStyle(severity).Render(line)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.w, line)
	return err
}
