package api

import (
	"context"

	"chainflow/pkg/value"
)

// Dispatcher sends one call to a worker and blocks for its reply.
type Dispatcher interface {
	// Dispatch returns the worker's outcome for task(arg). A non-nil error
	// means the channel itself failed and no outcome was received.
	Dispatch(ctx context.Context, task string, arg value.Value) (Outcome, error)
}

type stepKey struct{}

// Step identifies the workflow position a dispatch belongs to.
type Step struct {
	Workflow string
	Index    int
}

// WithStep annotates ctx with the workflow step being dispatched. Dispatchers
// copy it into the request header for tracing.
func WithStep(ctx context.Context, workflow string, index int) context.Context {
	return context.WithValue(ctx, stepKey{}, Step{Workflow: workflow, Index: index})
}

// StepFrom returns the step stored by WithStep.
func StepFrom(ctx context.Context) (Step, bool) {
	s, ok := ctx.Value(stepKey{}).(Step)
	return s, ok
}
