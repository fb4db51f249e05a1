// Package tasks holds the built-in task bodies shared by the scheduler and
// the worker. Each one satisfies output = task(input).
package tasks

import (
	"context"
	"errors"
	"fmt"

	"chainflow/pkg/api"
	"chainflow/pkg/registry"
	"chainflow/pkg/value"
)

// Task names.
const (
	Identity             = "identity"
	Double               = "double"
	Negate               = "negate"
	Fail                 = "fail"
	ReadCSV              = "read_csv"
	FilterDepartments    = "filter_departments"
	ComputeAverageSalary = "compute_average_salary"
)

// AverageSalaryFile is written by compute_average_salary into OutputDir.
const AverageSalaryFile = "average_salary.csv"

// DefaultDepartments are kept by filter_departments.
var DefaultDepartments = []string{"IT", "Finance"}

type Options struct {
	// OutputDir receives files written by tasks. Defaults to ".".
	OutputDir   string
	Departments []string
}

func (o Options) withDefaults() Options {
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if len(o.Departments) == 0 {
		o.Departments = DefaultDepartments
	}
	return o
}

// All returns every built-in task.
func All(opts Options) []api.Task {
	opts = opts.withDefaults()
	return []api.Task{
		api.Func(Identity, identity),
		api.Func(Double, double),
		api.Func(Negate, negate),
		api.Func(Fail, fail),
		api.Func(ReadCSV, readCSV),
		api.Func(FilterDepartments, filterDepartments(opts.Departments)),
		api.Func(ComputeAverageSalary, computeAverageSalary(opts.OutputDir)),
	}
}

// Register adds every built-in task to reg.
func Register(reg *registry.Registry, opts Options) error {
	var errs []error
	for _, t := range All(opts) {
		errs = append(errs, reg.Register(t))
	}
	return errors.Join(errs...)
}

func identity(_ context.Context, in value.Value) (value.Value, error) { return in, nil }

func double(_ context.Context, in value.Value) (value.Value, error) {
	switch in.Kind {
	case value.KindInt:
		return value.Int(in.Int * 2), nil
	case value.KindFloat:
		return value.Float(in.Float * 2), nil
	}
	return value.Null(), fmt.Errorf("cannot double a %s", in.Kind)
}

func negate(_ context.Context, in value.Value) (value.Value, error) {
	switch in.Kind {
	case value.KindInt:
		return value.Int(-in.Int), nil
	case value.KindFloat:
		return value.Float(-in.Float), nil
	}
	return value.Null(), fmt.Errorf("cannot negate a %s", in.Kind)
}

// fail always errors, with its input as the message when it is a string.
func fail(_ context.Context, in value.Value) (value.Value, error) {
	if s, ok := in.AsString(); ok && s != "" {
		return value.Null(), errors.New(s)
	}
	return value.Null(), errors.New("task failed")
}
