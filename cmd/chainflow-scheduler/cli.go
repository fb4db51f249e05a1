package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// Options holds CLI options for the scheduler.
type Options struct {
	ConfigPath string
	// Workflows is a YAML definitions file. Empty runs the built-in
	// employee salary analysis.
	Workflows string
	Data      string
	StartIn   time.Duration
	Address   string
}

func newCommand() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:   "chainflow-scheduler",
		Short: "Dispatch workflows to a worker once their start time arrives",
		Example: `  # employee salary analysis over data.csv, starting in two seconds
  chainflow-scheduler

  # workflows from a definitions file
  chainflow-scheduler --workflows workflows.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	fs := cmd.Flags()
	fs.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	fs.StringVar(&opts.Workflows, "workflows", "", "YAML workflow definitions file")
	fs.StringVar(&opts.Data, "data", "data.csv", "input CSV for the built-in workflow")
	fs.DurationVar(&opts.StartIn, "start-in", 2*time.Second, "delay before the built-in workflow starts")
	fs.StringVar(&opts.Address, "address", "", "worker address (overrides dispatch.address)")
	return cmd
}
