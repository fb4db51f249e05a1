package scheduler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/value"
)

const sampleDefinitions = `
workflows:
  - name: employee_salary_analysis
    tasks: [read_csv, filter_departments, compute_average_salary]
    start_in: 2s
    input: data.csv
  - name: arithmetic
    tasks:
      - double
      - negate
    start_at: "2024-05-01T10:00:00Z"
    input: 3
  - name: records
    tasks: [identity]
    input:
      - {department: IT, salary: 100}
      - {department: HR, salary: 50}
`

func TestParseDefinitions(t *testing.T) {
	now := epoch()
	ws, err := ParseDefinitions([]byte(sampleDefinitions), now)
	require.NoError(t, err)
	require.Len(t, ws, 3)

	assert.Equal(t, "employee_salary_analysis", ws[0].Name())
	assert.Equal(t, []string{"read_csv", "filter_departments", "compute_average_salary"}, ws[0].Tasks())
	assert.Equal(t, now.Add(2*time.Second), ws[0].StartTime())
	assert.Equal(t, value.String("data.csv"), ws[0].Input())

	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), ws[1].StartTime().UTC())
	assert.Equal(t, value.Int(3), ws[1].Input())

	assert.Equal(t, now, ws[2].StartTime())
	tbl, ok := ws[2].Input().AsTable()
	require.True(t, ok)
	assert.Equal(t, []string{"department", "salary"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	cell, _ := tbl.Cell(1, "department")
	assert.Equal(t, value.String("HR"), cell)
}

func TestParseDefinitionsErrors(t *testing.T) {
	cases := map[string]string{
		"empty":      ``,
		"no name":    "workflows:\n  - tasks: [identity]\n",
		"no tasks":   "workflows:\n  - name: a\n",
		"blank task": "workflows:\n  - name: a\n    tasks: [\"\"]\n",
		"both starts": "workflows:\n  - name: a\n    tasks: [identity]\n" +
			"    start_in: 1s\n    start_at: \"2024-05-01T10:00:00Z\"\n",
		"bad duration": "workflows:\n  - name: a\n    tasks: [identity]\n    start_in: soon\n",
		"bad time":     "workflows:\n  - name: a\n    tasks: [identity]\n    start_at: tomorrow\n",
		"unknown key":  "workflows:\n  - name: a\n    tasks: [identity]\n    retries: 3\n",
		"duplicate":    "workflows:\n  - name: a\n    tasks: [identity]\n  - name: a\n    tasks: [double]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDefinitions([]byte(doc), epoch())
			assert.Error(t, err)
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDefinitions), 0o600))

	ws, err := LoadDefinitions(path, epoch())
	require.NoError(t, err)
	assert.Len(t, ws, 3)

	_, err = LoadDefinitions(filepath.Join(t.TempDir(), "missing.yaml"), epoch())
	assert.Error(t, err)
}

func TestSampleDefinitions(t *testing.T) {
	ws, err := LoadDefinitions(filepath.Join("..", "..", "configs", "workflows.yaml"), epoch())
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.Equal(t, "error_chaining", ws[2].Name())
	assert.Equal(t, epoch(), ws[2].StartTime())
}
