package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chainflow/pkg/config"
	"chainflow/pkg/dispatch"
	"chainflow/pkg/observability"
	"chainflow/pkg/scheduler"
	"chainflow/pkg/tasks"
	"chainflow/pkg/value"
)

// EmployeeAnalysis is the workflow run when no definitions file is given.
const EmployeeAnalysis = "employee_salary_analysis"

func run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Address != "" {
		cfg.Dispatch.Address = opts.Address
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("chainflow-scheduler started", zap.String("app", cfg.AppName))
	zap.L().Debug("effective configuration", zap.Any("config", cfg))

	workflows, err := loadWorkflows(opts, time.Now())
	if err != nil {
		return err
	}

	dopts, err := dispatch.OptionsFromConfig(cfg.Dispatch)
	if err != nil {
		return err
	}
	client, err := dispatch.Dial(ctx, dopts)
	if err != nil {
		zap.L().Error("cannot reach worker", zap.String("addr", cfg.Dispatch.Address), zap.Error(err))
		return err
	}
	defer client.Close()

	s := scheduler.New(client, scheduler.OptionsFromConfig(cfg.Scheduler), workflows...)
	checkTasks(ctx, client, s)

	reports, err := s.Run(ctx)
	for _, r := range reports {
		zap.L().Info("workflow report",
			zap.String("workflow", r.Name),
			zap.Stringer("state", r.State),
			zap.Duration("took", r.Finished.Sub(r.Started)))
		fmt.Printf("Workflow %s completed. Final result:\n%s\n", r.Name, r.Result)
	}
	if err != nil {
		zap.L().Error("scheduler stopped", zap.Error(err))
		return err
	}
	return nil
}

func loadWorkflows(opts Options, now time.Time) ([]*scheduler.Workflow, error) {
	if opts.Workflows != "" {
		return scheduler.LoadDefinitions(opts.Workflows, now)
	}
	return []*scheduler.Workflow{
		scheduler.NewWorkflow(EmployeeAnalysis,
			[]string{tasks.ReadCSV, tasks.FilterDepartments, tasks.ComputeAverageSalary},
			now.Add(opts.StartIn),
			value.String(opts.Data)),
	}, nil
}

// checkTasks warns about task references the worker does not know. They
// still run and come back as failed outcomes.
func checkTasks(ctx context.Context, c *dispatch.Client, s *scheduler.Scheduler) {
	rep, err := c.ListTasks(ctx)
	if err != nil {
		zap.L().Warn("cannot list worker tasks", zap.Error(err))
		return
	}
	known := make(map[string]bool, len(rep.Tasks))
	for _, t := range rep.Tasks {
		known[t] = true
	}
	if err := s.Validate(func(t string) bool { return known[t] }); err != nil {
		zap.L().Warn("workflow check failed", zap.String("worker", rep.Worker), zap.Error(err))
	}
}
