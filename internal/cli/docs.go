package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	builtindocs "github.com/plesql/plesql/docs"
	"github.com/plesql/plesql/internal/ui"
)

var (
	docsSearchLimit int

	docsMarkdownRender = ui.RenderMarkdown
)

type docsTopic struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Title   string `json:"title"`
	Path    string `json:"path"`
}

type docsSearchMatch struct {
	Topic   string `json:"topic"`
	Title   string `json:"title"`
	Heading string `json:"heading,omitempty"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Read the bundled language and tool documentation",
	Long: `Browse documentation bundled into the plesql binary.

Examples:
  plesql docs
  plesql docs tree-format
  plesql docs search persist`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topics, err := listDocsTopics(builtindocs.FS)
		if err != nil {
			return handleError(ErrInternal, err, "Rebuild plesql so bundled docs are available")
		}

		if len(args) == 0 {
			if isJSONOutput() {
				outputSuccess(map[string]any{"topics": topics}, &Meta{Count: len(topics)})
				return nil
			}
			section := ""
			tbl := ui.NewTable(2)
			for _, t := range topics {
				if t.Section != section {
					section = t.Section
					tbl.AddSection(section)
				}
				tbl.AddRow("  "+ui.Name(t.ID), ui.Hint(t.Title))
			}
			fmt.Fprint(stdout, tbl.String())
			return nil
		}

		topic, ok := findDocsTopic(topics, args[0])
		if !ok {
			ids := make([]string, len(topics))
			for i, t := range topics {
				ids[i] = t.ID
			}
			return handleErrorMsg(ErrInvalidInput, fmt.Sprintf("unknown docs topic %q", args[0]), "Topics: "+strings.Join(ids, ", "))
		}
		content, err := fs.ReadFile(builtindocs.FS, topic.Path)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"topic": topic, "content": string(content)}, nil)
			return nil
		}
		display := ui.NewDisplayContext(os.Stdout, getConfig().Output.Color)
		if !display.IsTTY {
			_, err := stdout.Write(content)
			return err
		}
		rendered, err := docsMarkdownRender(string(content), display.TermWidth)
		if err != nil {
			_, err := stdout.Write(content)
			return err
		}
		fmt.Fprint(stdout, rendered)
		return nil
	},
}

var docsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the bundled documentation",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(strings.Join(args, " "))
		if query == "" {
			return handleErrorMsg(ErrMissingArgument, "specify a search query", "Usage: plesql docs search <query>")
		}
		if docsSearchLimit < 1 {
			return handleErrorMsg(ErrInvalidInput, "--limit must be >= 1", "")
		}

		matches, err := searchDocs(builtindocs.FS, query, docsSearchLimit)
		if err != nil {
			return handleError(ErrInternal, err, "")
		}

		if isJSONOutput() {
			outputSuccess(map[string]any{"query": query, "matches": matches}, &Meta{Count: len(matches)})
			return nil
		}
		if len(matches) == 0 {
			fmt.Fprintf(stdout, "No docs matched %q.\n", query)
			return nil
		}
		for _, m := range matches {
			where := fmt.Sprintf("line %d", m.Line)
			if m.Heading != "" && m.Heading != m.Title {
				where = m.Heading + ", " + where
			}
			fmt.Fprintf(stdout, "%s %s\n  %s\n", ui.Name(m.Topic), ui.Hint(where), m.Snippet)
		}
		return nil
	},
}

// listDocsTopics returns every markdown file, ordered by section then id.
// The guide section comes first.
func listDocsTopics(fsys fs.FS) ([]docsTopic, error) {
	var topics []docsTopic
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".md" {
			return nil
		}
		title, err := docsTitle(fsys, p)
		if err != nil {
			return err
		}
		topics = append(topics, docsTopic{
			ID:      strings.TrimSuffix(path.Base(p), ".md"),
			Section: path.Dir(p),
			Title:   title,
			Path:    p,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(topics, func(i, j int) bool {
		a, b := topics[i], topics[j]
		if a.Section != b.Section {
			if a.Section == "guide" || b.Section == "guide" {
				return a.Section == "guide"
			}
			return a.Section < b.Section
		}
		return a.ID < b.ID
	})
	return topics, nil
}

func docsTitle(fsys fs.FS, p string) (string, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return "", err
	}
	return pageTitle(docsOutline(data), strings.TrimSuffix(path.Base(p), ".md")), nil
}

func findDocsTopic(topics []docsTopic, name string) (docsTopic, bool) {
	name = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), ".md"))
	for _, t := range topics {
		if t.ID == name || t.Section+"/"+t.ID == name {
			return t, true
		}
	}
	return docsTopic{}, false
}

func searchDocs(fsys fs.FS, query string, limit int) ([]docsSearchMatch, error) {
	topics, err := listDocsTopics(fsys)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	var matches []docsSearchMatch
	for _, t := range topics {
		data, err := fs.ReadFile(fsys, t.Path)
		if err != nil {
			return nil, err
		}
		outline := docsOutline(data)
		for i, line := range strings.Split(string(data), "\n") {
			if !strings.Contains(strings.ToLower(line), needle) {
				continue
			}
			matches = append(matches, docsSearchMatch{
				Topic:   t.ID,
				Title:   t.Title,
				Heading: headingAt(outline, i+1),
				Line:    i + 1,
				Snippet: ui.TruncateWithEllipsis(strings.TrimSpace(line), 100),
			})
			if len(matches) >= limit {
				return matches, nil
			}
		}
	}
	return matches, nil
}

func init() {
	docsSearchCmd.Flags().IntVarP(&docsSearchLimit, "limit", "n", 20, "Maximum number of matches")
	docsCmd.AddCommand(docsSearchCmd)
	rootCmd.AddCommand(docsCmd)
}
