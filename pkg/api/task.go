package api

import (
	"context"

	"chainflow/pkg/value"
)

// Task is a unit of executable logic addressed by a stable name that the
// scheduler and the worker agree on ahead of time.
type Task interface {
	Name() string
	Run(ctx context.Context, in value.Value) (value.Value, error)
}

// TaskFunc adapts a plain function to Task.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context, in value.Value) (value.Value, error)
}

func (t TaskFunc) Name() string { return t.TaskName }

func (t TaskFunc) Run(ctx context.Context, in value.Value) (value.Value, error) {
	return t.Fn(ctx, in)
}

// Func is shorthand for building a TaskFunc.
func Func(name string, fn func(ctx context.Context, in value.Value) (value.Value, error)) Task {
	return TaskFunc{TaskName: name, Fn: fn}
}

// Call is the request half of one dispatch: which task to run and with what.
type Call struct {
	Task string      `json:"task" cbor:"task"`
	Arg  value.Value `json:"arg" cbor:"arg"`
}
