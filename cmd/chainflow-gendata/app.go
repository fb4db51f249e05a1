package main

import (
	"fmt"

	"go.uber.org/zap"

	"chainflow/pkg/config"
	"chainflow/pkg/gendata"
	"chainflow/pkg/observability"
)

func run(opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to setup logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	t, err := gendata.Generate(opts.Records, opts.Seed)
	if err != nil {
		return err
	}
	if err := gendata.WriteCSV(opts.Out, t); err != nil {
		return err
	}
	zap.L().Info("Data generated", zap.String("path", opts.Out), zap.Int("records", t.Len()))
	return nil
}
