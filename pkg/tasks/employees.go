package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"chainflow/pkg/value"
)

func readCSV(_ context.Context, in value.Value) (value.Value, error) {
	path, ok := in.AsString()
	if !ok {
		return value.Null(), fmt.Errorf("expected a file path, got %s", in.Kind)
	}
	f, err := os.Open(path)
	if err != nil {
		return value.Null(), err
	}
	defer f.Close()

	t, err := value.ReadCSV(f)
	if err != nil {
		return value.Null(), fmt.Errorf("%s: %w", path, err)
	}
	zap.L().Info("CSV loaded successfully", zap.String("path", path), zap.Int("rows", t.Len()))
	return value.FromTable(t), nil
}

func filterDepartments(departments []string) func(context.Context, value.Value) (value.Value, error) {
	keep := make(map[string]bool, len(departments))
	for _, d := range departments {
		keep[d] = true
	}
	return func(_ context.Context, in value.Value) (value.Value, error) {
		t, col, err := column(in, "department")
		if err != nil {
			return value.Null(), err
		}
		out := t.Filter(func(row []value.Value) bool {
			d, ok := row[col].AsString()
			return ok && keep[d]
		})
		zap.L().Info("Filtered departments", zap.Strings("departments", departments), zap.Int("rows", out.Len()))
		return value.FromTable(out), nil
	}
}

func computeAverageSalary(outputDir string) func(context.Context, value.Value) (value.Value, error) {
	return func(_ context.Context, in value.Value) (value.Value, error) {
		t, dcol, err := column(in, "department")
		if err != nil {
			return value.Null(), err
		}
		scol := t.Column("salary")
		if scol < 0 {
			return value.Null(), errors.New("no salary column")
		}

		type acc struct {
			sum float64
			n   int
		}
		groups := make(map[string]*acc)
		for i, row := range t.Rows {
			d, ok := row[dcol].AsString()
			if !ok {
				continue
			}
			s, ok := row[scol].AsNumber()
			if !ok {
				return value.Null(), fmt.Errorf("row %d: salary is a %s", i, row[scol].Kind)
			}
			g := groups[d]
			if g == nil {
				g = &acc{}
				groups[d] = g
			}
			g.sum += s
			g.n++
		}

		names := make([]string, 0, len(groups))
		for d := range groups {
			names = append(names, d)
		}
		sort.Strings(names)

		out := value.NewTable("department", "salary")
		for _, d := range names {
			g := groups[d]
			out.Rows = append(out.Rows, []value.Value{value.String(d), value.Float(g.sum / float64(g.n))})
		}

		path := filepath.Join(outputDir, AverageSalaryFile)
		if err := writeTable(path, out); err != nil {
			return value.Null(), err
		}
		zap.L().Info("Calculated average salary per department", zap.String("path", path))
		zap.L().Info(out.String())
		return value.FromTable(out), nil
	}
}

// column returns in as a table together with the index of name.
func column(in value.Value, name string) (*value.Table, int, error) {
	t, ok := in.AsTable()
	if !ok {
		return nil, -1, fmt.Errorf("expected a table, got %s", in.Kind)
	}
	c := t.Column(name)
	if c < 0 {
		return nil, -1, fmt.Errorf("no %s column", name)
	}
	return t, c, nil
}

func writeTable(path string, t *value.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := value.WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
