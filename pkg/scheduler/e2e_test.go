package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"chainflow/pkg/api"
	"chainflow/pkg/dispatch"
	"chainflow/pkg/gendata"
	"chainflow/pkg/registry"
	"chainflow/pkg/tasks"
	"chainflow/pkg/transport/mem"
	"chainflow/pkg/value"
	"chainflow/pkg/worker"
)

// dialWorker serves the built-in tasks on a private mem transport and
// returns a client connected to it.
func dialWorker(t *testing.T, outputDir string) *dispatch.Client {
	t.Helper()
	reg := registry.New()
	require.NoError(t, tasks.Register(reg, tasks.Options{OutputDir: outputDir}))
	w := worker.New(reg, worker.Options{Name: "e2e"})

	tr := mem.New()
	ctx, cancel := context.WithCancel(context.Background())
	l, err := tr.Listen(ctx, "worker")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx, l) }()

	c, err := dispatch.Dial(context.Background(), dispatch.Options{Transport: tr, Address: "worker"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
		cancel()
		assert.NoError(t, <-done)
		w.Close()
	})
	return c
}

func TestRunOverWorker(t *testing.T) {
	dir := t.TempDir()
	c := dialWorker(t, dir)

	data, err := gendata.Generate(50, 5)
	require.NoError(t, err)
	csvPath := filepath.Join(dir, "data.csv")
	require.NoError(t, gendata.WriteCSV(csvPath, data))

	fc := clocktesting.NewFakeClock(epoch())
	s := New(c, Options{Clock: fc},
		NewWorkflow("arithmetic", []string{tasks.Double, tasks.Negate}, epoch(), value.Int(3)),
		NewWorkflow("errors", []string{tasks.Fail, tasks.Identity}, epoch(), value.String("boom")),
		NewWorkflow("employee_salary_analysis",
			[]string{tasks.ReadCSV, tasks.FilterDepartments, tasks.ComputeAverageSalary},
			epoch(), value.String(csvPath)),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reports, err := s.Run(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, api.Success(value.Int(-6)), reports[0].Result)
	assert.Equal(t, api.Success(value.String("Error executing task: boom")), reports[1].Result)

	avg, ok := reports[2].Result.Value.AsTable()
	require.True(t, ok)
	assert.Equal(t, []string{"department", "salary"}, avg.Columns)
	assert.LessOrEqual(t, avg.Len(), 2)
	assert.FileExists(t, filepath.Join(dir, tasks.AverageSalaryFile))
	for _, r := range reports {
		assert.Equal(t, StateComplete, r.State, r.Name)
	}
}

func TestHaltOverWorker(t *testing.T) {
	c := dialWorker(t, t.TempDir())
	s := New(c, Options{FailurePolicy: FailHalt},
		NewWorkflow("halts", []string{tasks.ReadCSV, tasks.Identity}, time.Time{}, value.Int(1)))

	reports, err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, StateFailed, reports[0].State)
	assert.Equal(t, "Error executing task: expected a file path, got int", reports[0].Result.String())
}
