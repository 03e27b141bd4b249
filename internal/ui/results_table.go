package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/plesql/plesql/internal/value"
)

// Bounds for a single column of a rendered result set.
const (
	minColumnWidth = 6
	maxColumnWidth = 40
)

// ResultsTable renders query results, one document per row. Columns come
// from the explicit column list or, when that is empty, from the keys of
// the rows in first-seen order.
type ResultsTable struct {
	display *DisplayContext
	columns []string
	rows    []*value.Document
}

// NewResultsTable creates a new ResultsTable with the given display context.
func NewResultsTable(display *DisplayContext, columns []string) *ResultsTable {
	return &ResultsTable{
		display: display,
		columns: append([]string(nil), columns...),
	}
}

// AddRow adds a row to the table.
func (t *ResultsTable) AddRow(row *value.Document) {
	t.rows = append(t.rows, row)
}

// AddRows adds every DOCUMENT element of rows. Other elements are shown in
// a single "value" column.
func (t *ResultsTable) AddRows(rows *value.Array) {
	if rows == nil {
		return
	}
	for _, e := range rows.Elems() {
		if d, ok := e.(*value.Document); ok {
			t.AddRow(d)
			continue
		}
		d := value.NewDocument()
		d.Set("value", e)
		t.AddRow(d)
	}
}

// Columns returns the rendered column names.
func (t *ResultsTable) Columns() []string {
	if len(t.columns) > 0 {
		return t.columns
	}
	seen := make(map[string]bool)
	var cols []string
	for _, row := range t.rows {
		for _, k := range row.Keys() {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// calculateWidths splits the terminal width evenly, within per-column bounds.
func (t *ResultsTable) calculateWidths(cols int) int {
	const columnPadding = 2
	leftMargin := 2
	available := t.display.AvailableWidth(leftMargin) - (cols-1)*columnPadding
	if cols == 0 {
		return maxColumnWidth
	}
	width := available / cols
	if width < minColumnWidth {
		width = minColumnWidth
	}
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return width
}

// Render generates the table output as a string.
func (t *ResultsTable) Render() string {
	if len(t.rows) == 0 {
		return ""
	}

	cols := t.Columns()
	width := t.calculateWidths(len(cols))

	tableRows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		cells := make([]string, len(cols))
		for j, col := range cols {
			v, ok := row.Get(col)
			if !ok {
				continue
			}
			cells[j] = TruncateWithEllipsis(cellText(v), width)
		}
		tableRows[i] = cells
	}

	tbl := table.New().
		Border(lipgloss.Border{
			Top:    "─",
			Bottom: "─",
			Left:   "",
			Right:  "",
			Middle: "─",
		}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderRow(false).
		BorderColumn(false).
		BorderStyle(Muted).
		Headers(cols...).
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Width(width)
			if col < len(cols)-1 {
				style = style.PaddingRight(2)
			}
			if row == table.HeaderRow {
				return style.Inherit(AccentBold)
			}
			return style
		}).
		Rows(tableRows...)

	return tbl.Render()
}

func cellText(v value.Value) string {
	switch v.(type) {
	case *value.Array, *value.Document:
		if b, err := value.EncodeJSON(v); err == nil {
			return string(b)
		}
	}
	return strings.ReplaceAll(value.ToString(v), "\n", " ")
}

// TruncateWithEllipsis truncates a string to maxLen runes, adding an
// ellipsis if needed. It tries to break at word boundaries.
func TruncateWithEllipsis(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}

	truncated := string(r[:maxLen-3])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > len(truncated)/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}

// RowCount formats a result size, e.g. "3 rows".
func RowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
