package api

import (
	"context"

	"chainflow/pkg/value"
)

// Executor runs tasks by name and captures their errors as failed outcomes.
type Executor interface {
	// CanHandle returns true if this executor can resolve the task name.
	CanHandle(name string) bool

	// Execute runs the task once. It never returns an error: execution
	// problems are reported through a failed Outcome.
	Execute(ctx context.Context, task string, arg value.Value) Outcome
}
