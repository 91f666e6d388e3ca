package component

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/HosicoLabs/Litterbox/internal/ui/style"
)

// TableColumn represents a column configuration
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// Table renders fixed-width rows with one highlighted cursor row and any
// number of marked rows.
type Table struct {
	columns []TableColumn
	rows    [][]string
	marked  map[int]bool
	cursor  int

	headerStyle lipgloss.Style
	rowStyle    lipgloss.Style
	markedStyle lipgloss.Style
	cursorStyle lipgloss.Style
}

// NewTable creates a new table component
func NewTable(columns ...TableColumn) *Table {
	palette := style.DefaultPalette()
	return &Table{
		columns:     columns,
		marked:      make(map[int]bool),
		cursor:      -1,
		headerStyle: lipgloss.NewStyle().Foreground(palette.Secondary).Bold(true),
		rowStyle:    lipgloss.NewStyle().Foreground(palette.Text),
		markedStyle: lipgloss.NewStyle().Foreground(palette.Success),
		cursorStyle: lipgloss.NewStyle().Foreground(palette.Background).Background(palette.Primary),
	}
}

// AddRow appends a row; marked rows render in the success color.
func (t *Table) AddRow(marked bool, cells ...string) *Table {
	t.marked[len(t.rows)] = marked
	t.rows = append(t.rows, cells)
	return t
}

// SetCursor highlights row i; -1 disables the cursor.
func (t *Table) SetCursor(i int) *Table {
	t.cursor = i
	return t
}

// View renders the header and rows.
func (t *Table) View() string {
	var b strings.Builder
	headers := make([]string, len(t.columns))
	for i, c := range t.columns {
		headers[i] = c.Header
	}
	b.WriteString(t.headerStyle.Render(t.line(headers)))

	for i, row := range t.rows {
		b.WriteString("\n")
		st := t.rowStyle
		if t.marked[i] {
			st = t.markedStyle
		}
		if i == t.cursor {
			st = t.cursorStyle
		}
		b.WriteString(st.Render(t.line(row)))
	}
	return b.String()
}

func (t *Table) line(cells []string) string {
	parts := make([]string, len(t.columns))
	for i, c := range t.columns {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if lipgloss.Width(cell) > c.Width {
			cell = truncate(cell, c.Width)
		}
		parts[i] = lipgloss.PlaceHorizontal(c.Width, c.Align, cell)
	}
	return strings.Join(parts, " ")
}

func truncate(s string, width int) string {
	if width <= 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
