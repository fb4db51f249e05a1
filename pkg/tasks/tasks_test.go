package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/api"
	"chainflow/pkg/gendata"
	"chainflow/pkg/registry"
	"chainflow/pkg/value"
)

func run(t *testing.T, reg *registry.Registry, name string, in value.Value) (value.Value, error) {
	t.Helper()
	task, err := reg.Resolve(name)
	require.NoError(t, err)
	return task.Run(context.Background(), in)
}

func newRegistry(t *testing.T, opts Options) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, Register(reg, opts))
	return reg
}

func TestRegisterAll(t *testing.T) {
	reg := newRegistry(t, Options{})
	assert.Equal(t, []string{
		ComputeAverageSalary, Double, Fail, FilterDepartments, Identity, Negate, ReadCSV,
	}, reg.Names())
	assert.Error(t, Register(reg, Options{}), "second registration collides")
}

func TestArithmetic(t *testing.T) {
	reg := newRegistry(t, Options{})

	out, err := run(t, reg, Double, value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, value.Int(6), out)

	out, err = run(t, reg, Negate, value.Int(6))
	require.NoError(t, err)
	assert.Equal(t, value.Int(-6), out)

	out, err = run(t, reg, Double, value.Float(1.25))
	require.NoError(t, err)
	assert.Equal(t, value.Float(2.5), out)

	_, err = run(t, reg, Negate, value.String("x"))
	assert.EqualError(t, err, "cannot negate a string")

	out, err = run(t, reg, Identity, value.List(value.Int(1)))
	require.NoError(t, err)
	assert.Equal(t, value.List(value.Int(1)), out)
}

func TestFail(t *testing.T) {
	reg := newRegistry(t, Options{})
	_, err := run(t, reg, Fail, value.String("disk full"))
	assert.EqualError(t, err, "disk full")
	_, err = run(t, reg, Fail, value.Null())
	assert.EqualError(t, err, "task failed")
}

func TestReadCSVErrors(t *testing.T) {
	reg := newRegistry(t, Options{})
	_, err := run(t, reg, ReadCSV, value.Int(1))
	assert.EqualError(t, err, "expected a file path, got int")

	_, err = run(t, reg, ReadCSV, value.String(filepath.Join(t.TempDir(), "missing.csv")))
	assert.Error(t, err)
}

func TestFilterDepartments(t *testing.T) {
	tbl := value.NewTable("name", "department")
	require.NoError(t, tbl.AppendRow(value.String("a"), value.String("IT")))
	require.NoError(t, tbl.AppendRow(value.String("b"), value.String("HR")))
	require.NoError(t, tbl.AppendRow(value.String("c"), value.String("Finance")))
	require.NoError(t, tbl.AppendRow(value.String("d"), value.Null()))

	out, err := run(t, newRegistry(t, Options{}), FilterDepartments, value.FromTable(tbl))
	require.NoError(t, err)
	got, _ := out.AsTable()
	assert.Equal(t, [][]value.Value{
		{value.String("a"), value.String("IT")},
		{value.String("c"), value.String("Finance")},
	}, got.Rows)

	out, err = run(t, newRegistry(t, Options{Departments: []string{"HR"}}), FilterDepartments, value.FromTable(tbl))
	require.NoError(t, err)
	got, _ = out.AsTable()
	assert.Equal(t, 1, got.Len())

	_, err = run(t, newRegistry(t, Options{}), FilterDepartments, value.String("Error executing task: boom"))
	assert.EqualError(t, err, "expected a table, got string")

	_, err = run(t, newRegistry(t, Options{}), FilterDepartments, value.FromTable(value.NewTable("name")))
	assert.EqualError(t, err, "no department column")
}

func TestComputeAverageSalary(t *testing.T) {
	dir := t.TempDir()
	tbl := value.NewTable("department", "salary")
	require.NoError(t, tbl.AppendRow(value.String("IT"), value.Int(100000)))
	require.NoError(t, tbl.AppendRow(value.String("Finance"), value.Int(90000)))
	require.NoError(t, tbl.AppendRow(value.String("IT"), value.Int(75001)))

	out, err := run(t, newRegistry(t, Options{OutputDir: dir}), ComputeAverageSalary, value.FromTable(tbl))
	require.NoError(t, err)
	got, _ := out.AsTable()
	assert.Equal(t, []string{"department", "salary"}, got.Columns)
	assert.Equal(t, [][]value.Value{
		{value.String("Finance"), value.Float(90000)},
		{value.String("IT"), value.Float(87500.5)},
	}, got.Rows)

	data, err := os.ReadFile(filepath.Join(dir, AverageSalaryFile))
	require.NoError(t, err)
	assert.Equal(t, "department,salary\nFinance,90000.0\nIT,87500.5\n", string(data))

	bad := value.NewTable("department", "salary")
	require.NoError(t, bad.AppendRow(value.String("IT"), value.String("lots")))
	_, err = run(t, newRegistry(t, Options{OutputDir: dir}), ComputeAverageSalary, value.FromTable(bad))
	assert.EqualError(t, err, "row 0: salary is a string")
}

func TestEmployeePipeline(t *testing.T) {
	dir := t.TempDir()
	data, err := gendata.Generate(100, 11)
	require.NoError(t, err)
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, gendata.WriteCSV(csvPath, data))

	sums := map[string]float64{}
	counts := map[string]int{}
	for _, rec := range data.Records() {
		d, _ := rec["department"].AsString()
		if d != "IT" && d != "Finance" {
			continue
		}
		s, _ := rec["salary"].AsNumber()
		sums[d] += s
		counts[d]++
	}

	reg := newRegistry(t, Options{OutputDir: dir})
	cur := api.Success(value.String(csvPath))
	for _, name := range []string{ReadCSV, FilterDepartments, ComputeAverageSalary} {
		out, err := run(t, reg, name, cur.Forward())
		require.NoError(t, err, name)
		cur = api.Success(out)
	}

	got, ok := cur.Value.AsTable()
	require.True(t, ok)
	require.Equal(t, len(counts), got.Len())
	for _, rec := range got.Records() {
		d, _ := rec["department"].AsString()
		avg, _ := rec["salary"].AsFloat()
		assert.InDelta(t, sums[d]/float64(counts[d]), avg, 1e-9, d)
	}
	assert.FileExists(t, filepath.Join(dir, AverageSalaryFile))
}
