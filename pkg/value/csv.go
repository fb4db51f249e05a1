package value

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSV loads a table whose first record is the header. Cells are typed:
// an integer if the text parses as one, else a float, else a string. Empty
// cells are null.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	t := NewTable(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		row := make([]Value, len(rec))
		for i, cell := range rec {
			row[i] = ParseCell(cell)
		}
		t.Rows = append(t.Rows, row)
	}
}

// ParseCell types one CSV field. Words such as "NaN" or "Inf" stay strings.
func ParseCell(s string) Value {
	if s == "" {
		return Null()
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(n)
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return Float(f)
		}
	}
	return String(s)
}

// FormatCell is the CSV text of a cell. Floats always carry a decimal
// point so they read back as floats.
func FormatCell(v Value) string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

// WriteCSV writes the header and every row of t.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("csv header: %w", err)
	}
	rec := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j, cell := range row {
			rec[j] = FormatCell(cell)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
