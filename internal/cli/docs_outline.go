package cli

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	mdast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// docsHeading is one heading of a docs page.
type docsHeading struct {
	Level int
	Text  string
	Line  int
}

// docsOutline lists the headings of a markdown page in document order.
// Lines starting with # inside fenced code are not headings.
func docsOutline(source []byte) []docsHeading {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	var out []docsHeading
	_ = mdast.Walk(doc, func(n mdast.Node, entering bool) (mdast.WalkStatus, error) {
		h, ok := n.(*mdast.Heading)
		if !ok || !entering {
			return mdast.WalkContinue, nil
		}
		line := 0
		if h.Lines().Len() > 0 {
			line = bytes.Count(source[:h.Lines().At(0).Start], []byte("\n")) + 1
		}
		out = append(out, docsHeading{Level: h.Level, Text: inlineText(h, source), Line: line})
		return mdast.WalkSkipChildren, nil
	})
	return out
}

func inlineText(n mdast.Node, source []byte) string {
	var b strings.Builder
	_ = mdast.Walk(n, func(c mdast.Node, entering bool) (mdast.WalkStatus, error) {
		if !entering {
			return mdast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *mdast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *mdast.String:
			b.Write(t.Value)
		}
		return mdast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// pageTitle is the first level-one heading, or fallback.
func pageTitle(outline []docsHeading, fallback string) string {
	for _, h := range outline {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	return fallback
}

// headingAt returns the text of the last heading at or above line.
func headingAt(outline []docsHeading, line int) string {
	heading := ""
	for _, h := range outline {
		if h.Line > line {
			break
		}
		heading = h.Text
	}
	return heading
}
