package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chainflow/pkg/config"
	"chainflow/pkg/netstack"
	"chainflow/pkg/observability"
	"chainflow/pkg/registry"
	"chainflow/pkg/tasks"
	"chainflow/pkg/worker"
)

func run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Listen != "" {
		cfg.Worker.Listen = opts.Listen
	}
	if opts.Kind != "" {
		cfg.Worker.Kind = opts.Kind
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	zap.L().Info("chainflow-worker started", zap.String("app", cfg.AppName))
	zap.L().Debug("effective configuration", zap.Any("config", cfg))

	reg := registry.New()
	err = tasks.Register(reg, tasks.Options{
		OutputDir:   cfg.Worker.OutputDir,
		Departments: cfg.Worker.Departments,
	})
	if err != nil {
		return err
	}
	w := worker.New(reg, worker.Options{
		Name:         cfg.Worker.Name,
		ReplyTTL:     cfg.Worker.ReplyTTL,
		FragmentSize: cfg.Dispatch.FragmentSize,
	})
	defer w.Close()

	l, err := netstack.Listen(ctx, cfg.Worker.Kind, cfg.Worker.Listen)
	if err != nil {
		return err
	}
	zap.L().Info("Worker started, waiting for tasks...",
		zap.String("worker", w.Name()),
		zap.Strings("tasks", reg.Names()))
	if err := w.Serve(ctx, l); err != nil {
		zap.L().Error("worker stopped", zap.Error(err))
		return err
	}
	zap.L().Info("worker stopped")
	return nil
}
