package ui

import (
	"strings"

	chromastyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
)

// MarkdownRenderMargin is the left margin used for rendered docs.
const MarkdownRenderMargin = 2

const defaultCodeTheme = "monokai"

// docsCodeColor colors inline code and unhighlighted blocks. Tree examples
// in the docs are YAML, so most blocks go through the Chroma theme instead.
const docsCodeColor = "#F5C2E7"

var markdownCodeTheme = defaultCodeTheme

// ConfigureMarkdownCodeTheme selects the Chroma theme for fenced code in
// rendered docs. Names are case-insensitive; unknown names select the
// default theme.
func ConfigureMarkdownCodeTheme(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, ok := chromastyles.Registry[name]; !ok {
		name = defaultCodeTheme
	}
	markdownCodeTheme = name
}

// RenderMarkdown renders a docs page for the terminal, wrapped at width.
// The result always ends in exactly one newline.
func RenderMarkdown(content string, width int) (string, error) {
	if width <= 0 {
		width = DefaultTermWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(docsMarkdownStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(content)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

// docsMarkdownStyle starts from glamour's dark style and adjusts headings,
// code and margins. Pointer fields are replaced, never written through, so
// the shared base config is left untouched.
func docsMarkdownStyle() ansi.StyleConfig {
	style := glamourstyles.DarkStyleConfig

	margin := uint(MarkdownRenderMargin)
	style.Document.Margin = &margin
	style.Document.BlockPrefix = "\n"
	style.Document.BlockSuffix = "\n"

	style.Heading.Color = nil
	if color, ok := AccentColor(); ok {
		style.Heading.Color = &color
	}
	underline := true
	style.H1 = headingLevel(1, &underline)
	style.H2 = headingLevel(2, &underline)
	style.H3 = headingLevel(3, nil)

	code := docsCodeColor
	style.Code = ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
		Prefix: "`",
		Suffix: "`",
		Color:  &code,
	}}
	style.CodeBlock.Color = &code
	style.CodeBlock.Margin = &margin
	style.CodeBlock.Theme = markdownCodeTheme
	style.CodeBlock.Chroma = nil

	sep, row := "│", "─"
	style.Table.CenterSeparator = &sep
	style.Table.ColumnSeparator = &sep
	style.Table.RowSeparator = &row

	return style
}

func headingLevel(level int, underline *bool) ansi.StyleBlock {
	return ansi.StyleBlock{StylePrimitive: ansi.StylePrimitive{
		Prefix:    strings.Repeat("#", level) + " ",
		Underline: underline,
	}}
}
