package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table accumulates rows for console and TXT rendering
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth map[int]int
}

// NewTable creates a table with the given column headers
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, maxWidth: make(map[int]int)}
}

// SetMaxWidth wraps the named column at width runes
func (t *Table) SetMaxWidth(column string, width int) *Table {
	for i, h := range t.headers {
		if h == column {
			t.maxWidth[i] = width
		}
	}
	return t
}

// AddRow appends a row; values are formatted with %v
func (t *Table) AddRow(values ...interface{}) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) && values[i] != nil {
			row[i] = fmt.Sprintf("%v", values[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Headers returns the column headers
func (t *Table) Headers() []string {
	return append([]string(nil), t.headers...)
}

// Render draws the table in the named style. Unknown styles fall back to
// the default ASCII grid.
func (t *Table) Render(style string) string {
	tbl := table.New().
		Border(borderFor(style)).
		Headers(t.headers...).
		Rows(t.wrappedRows()...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(style != "plain_columns")
			}
			return s
		})

	switch style {
	case "markdown":
		tbl = tbl.BorderTop(false).BorderBottom(false)
	case "plain_columns":
		tbl = tbl.BorderHeader(false)
	}

	return tbl.String()
}

func (t *Table) wrappedRows() [][]string {
	if len(t.maxWidth) == 0 {
		return t.rows
	}
	out := make([][]string, len(t.rows))
	for i, row := range t.rows {
		wrapped := make([]string, len(row))
		for j, cell := range row {
			if w, ok := t.maxWidth[j]; ok {
				cell = wrap(cell, w)
			}
			wrapped[j] = cell
		}
		out[i] = wrapped
	}
	return out
}

// wrap breaks s into lines of at most width runes, preferring spaces
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var line []rune
		for _, word := range strings.Fields(para) {
			w := []rune(word)
			for len(w) > width {
				if len(line) > 0 {
					lines = append(lines, string(line))
					line = nil
				}
				lines = append(lines, string(w[:width]))
				w = w[width:]
			}
			switch {
			case len(line) == 0:
				line = w
			case len(line)+1+len(w) <= width:
				line = append(append(line, ' '), w...)
			default:
				lines = append(lines, string(line))
				line = w
			}
		}
		lines = append(lines, string(line))
	}
	return strings.Join(lines, "\n")
}

func borderFor(style string) lipgloss.Border {
	switch style {
	case "single_border":
		return lipgloss.NormalBorder()
	case "double_border":
		return lipgloss.DoubleBorder()
	case "markdown":
		return lipgloss.MarkdownBorder()
	case "plain_columns":
		return lipgloss.HiddenBorder()
	case "rounded":
		return lipgloss.RoundedBorder()
	case "thick":
		return lipgloss.ThickBorder()
	default:
		return lipgloss.ASCIIBorder()
	}
}
