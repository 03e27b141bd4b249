package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const tableGap = "  "

// Table lays out borderless, aligned columns. Cells may carry styles;
// widths are measured without escape sequences. Section rows print a
// header line and do not affect column widths, so every section of one
// table shares the same alignment.
type Table struct {
	rows   []tableRow
	widths []int
	right  []bool
}

type tableRow struct {
	section string
	cells   []string
}

// NewTable creates a table with cols columns.
func NewTable(cols int) *Table {
	return &Table{
		widths: make([]int, cols),
		right:  make([]bool, cols),
	}
}

// AlignRight right-aligns column col, e.g. for counts.
func (t *Table) AlignRight(col int) *Table {
	if col >= 0 && col < len(t.right) {
		t.right[col] = true
	}
	return t
}

// AddSection starts a titled group of rows.
func (t *Table) AddSection(title string) {
	t.rows = append(t.rows, tableRow{section: title})
}

// AddRow adds a row. Missing cells are blank and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.widths))
	copy(row, cells)
	for i, c := range row {
		t.widths[i] = max(t.widths[i], lipgloss.Width(c))
	}
	t.rows = append(t.rows, tableRow{cells: row})
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	n := 0
	for _, r := range t.rows {
		if r.cells != nil {
			n++
		}
	}
	return n
}

func (t *Table) String() string {
	var sb strings.Builder
	for i, r := range t.rows {
		if r.cells == nil {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(Header(r.section))
			sb.WriteByte('\n')
			continue
		}
		var line strings.Builder
		for col, c := range r.cells {
			if col > 0 {
				line.WriteString(tableGap)
			}
			pad := strings.Repeat(" ", t.widths[col]-lipgloss.Width(c))
			if t.right[col] {
				line.WriteString(pad + c)
			} else {
				line.WriteString(c + pad)
			}
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}
