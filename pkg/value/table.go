package value

import (
	"fmt"
	"strings"
)

// Table is a record-like value: named columns and rows of cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string  `json:"c" cbor:"c"`
	Rows    [][]Value `json:"r,omitempty" cbor:"r,omitempty"`
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AppendRow adds a row; the cell count must match the column count.
func (t *Table) AppendRow(cells ...Value) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Cell returns the cell at row i in the named column.
func (t *Table) Cell(i int, column string) (Value, bool) {
	c := t.Column(column)
	if c < 0 || i < 0 || i >= len(t.Rows) {
		return Value{}, false
	}
	return t.Rows[i][c], true
}

// Records returns the rows keyed by column name.
func (t *Table) Records() []map[string]Value {
	out := make([]map[string]Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]Value, len(t.Columns))
		for i, c := range t.Columns {
			rec[c] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Filter returns a new table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(row []Value) bool) *Table {
	out := NewTable(t.Columns...)
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Equal compares column names and every cell.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if len(t.Columns) != len(o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Columns {
		if t.Columns[i] != o.Columns[i] {
			return false
		}
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for j := range t.Rows[i] {
			if !Equal(t.Rows[i][j], o.Rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) String() string {
	if t == nil {
		return "<nil table>"
	}
	var b strings.Builder
	b.WriteString(strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteByte('\t')
			}
			b.WriteString(cell.String())
		}
	}
	return b.String()
}
