package scheduler

import (
	"time"

	"chainflow/pkg/api"
	"chainflow/pkg/value"
)

// State is the lifecycle position of a workflow.
type State uint8

const (
	StatePending State = iota
	StateRunning
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Workflow is a named, ordered chain of task references with a start time
// and an initial input. Only the Scheduler moves its cursor.
type Workflow struct {
	name  string
	tasks []string
	start time.Time
	input value.Value

	cursor  int
	last    api.Outcome
	running bool
	failed  bool
}

// NewWorkflow copies tasks; later changes to the caller's slice are not seen.
func NewWorkflow(name string, tasks []string, start time.Time, input value.Value) *Workflow {
	return &Workflow{
		name:  name,
		tasks: append([]string(nil), tasks...),
		start: start,
		input: input,
	}
}

func (w *Workflow) Name() string         { return w.name }
func (w *Workflow) StartTime() time.Time { return w.start }
func (w *Workflow) Input() value.Value   { return w.input }
func (w *Workflow) Cursor() int          { return w.cursor }
func (w *Workflow) Len() int             { return len(w.tasks) }

// Tasks returns a copy of the task references.
func (w *Workflow) Tasks() []string { return append([]string(nil), w.tasks...) }

// LastResult is the outcome of the most recently completed step. It is the
// zero Outcome until the first reply arrives.
func (w *Workflow) LastResult() api.Outcome { return w.last }

// Done reports whether the workflow needs no further dispatches.
func (w *Workflow) Done() bool { return w.failed || w.cursor == len(w.tasks) }

func (w *Workflow) State() State {
	switch {
	case w.failed:
		return StateFailed
	case w.cursor == len(w.tasks) && !w.running:
		return StateComplete
	case w.running || w.cursor > 0:
		return StateRunning
	default:
		return StatePending
	}
}

// nextInput is the argument for tasks[cursor]: the initial input for the
// first step, otherwise whatever the previous step forwarded.
func (w *Workflow) nextInput() value.Value {
	if w.cursor == 0 {
		return w.input
	}
	return w.last.Forward()
}
