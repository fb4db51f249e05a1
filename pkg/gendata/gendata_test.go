package gendata

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/value"
)

func TestGenerateRanges(t *testing.T) {
	tbl, err := Generate(100, 42)
	require.NoError(t, err)
	require.Equal(t, Columns, tbl.Columns)
	require.Equal(t, 100, tbl.Len())

	names := map[string]bool{}
	for i, rec := range tbl.Records() {
		assert.Equal(t, value.Int(int64(i+1)), rec["id"])

		name, ok := rec["name"].AsString()
		require.True(t, ok)
		assert.False(t, names[name], "duplicate name %s", name)
		names[name] = true

		salary, ok := rec["salary"].AsInt()
		require.True(t, ok)
		assert.GreaterOrEqual(t, salary, int64(MinSalary))
		assert.LessOrEqual(t, salary, int64(MaxSalary))

		age, ok := rec["age"].AsInt()
		require.True(t, ok)
		assert.GreaterOrEqual(t, age, int64(MinAge))
		assert.LessOrEqual(t, age, int64(MaxAge))

		dept, _ := rec["department"].AsString()
		assert.True(t, slices.Contains(Departments, dept), dept)
	}
}

func TestGenerateIsSeeded(t *testing.T) {
	a, err := Generate(20, 7)
	require.NoError(t, err)
	b, err := Generate(20, 7)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestGenerateEdgeCounts(t *testing.T) {
	tbl, err := Generate(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	_, err = Generate(-1, 1)
	assert.Error(t, err)
}

func TestWriteCSVReadsBack(t *testing.T) {
	tbl, err := Generate(10, 3)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, WriteCSV(path, tbl))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	got, err := value.ReadCSV(f)
	require.NoError(t, err)
	assert.True(t, tbl.Equal(got))
}
