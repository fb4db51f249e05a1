// Package gendata generates the sample employee table used by the salary
// analysis workflow.
package gendata

import (
	"fmt"
	"os"

	"github.com/brianvoe/gofakeit/v7"

	"chainflow/pkg/value"
)

const (
	MinSalary = 30000
	MaxSalary = 150000
	MinAge    = 20
	MaxAge    = 65
)

// Departments an employee can belong to.
var Departments = []string{
	"Sales", "Marketing", "Finance", "HR", "IT",
	"Operations", "Customer Service", "Legal", "R&D", "Administration",
}

// Columns of a generated table.
var Columns = []string{"id", "name", "salary", "age", "department"}

// maxNameTries bounds the search for an unused first name.
const maxNameTries = 1000

// Generate returns n employees with unique first names. The same non-zero
// seed gives the same table; zero seeds from a random source.
func Generate(n int, seed uint64) (*value.Table, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative record count %d", n)
	}
	f := gofakeit.New(seed)
	names, err := uniqueFirstNames(f, n)
	if err != nil {
		return nil, err
	}
	t := value.NewTable(Columns...)
	for i := range n {
		t.Rows = append(t.Rows, []value.Value{
			value.Int(int64(i + 1)),
			value.String(names[i]),
			value.Int(int64(f.IntRange(MinSalary, MaxSalary))),
			value.Int(int64(f.IntRange(MinAge, MaxAge))),
			value.String(f.RandomString(Departments)),
		})
	}
	return t, nil
}

func uniqueFirstNames(f *gofakeit.Faker, n int) ([]string, error) {
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for len(out) < n {
		tries := 0
		name := f.FirstName()
		for seen[name] {
			if tries++; tries >= maxNameTries {
				return nil, fmt.Errorf("ran out of unique first names after %d", len(out))
			}
			name = f.FirstName()
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// WriteCSV writes t to path, replacing any existing file.
func WriteCSV(path string, t *value.Table) error {
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
