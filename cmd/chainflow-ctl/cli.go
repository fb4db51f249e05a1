package main

import (
	"time"

	"github.com/spf13/cobra"
)

// Options holds flags shared by every ctl subcommand.
type Options struct {
	ConfigPath string
	Address    string
	Kind       string
	Format     string
	Timeout    time.Duration
}

func newCommand() *cobra.Command {
	var opts Options
	root := &cobra.Command{
		Use:           "chainflow-ctl",
		Short:         "Inspect and drive a chainflow worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	pf.StringVar(&opts.Address, "address", "", "worker address (overrides dispatch.address)")
	pf.StringVar(&opts.Kind, "kind", "", "transport kind: tcp|quic (overrides dispatch.kind)")
	pf.StringVar(&opts.Format, "format", "", "payload format: cbor|json|proto (overrides dispatch.format)")
	pf.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "overall deadline, 0 for none")

	root.AddCommand(
		&cobra.Command{
			Use:   "ping",
			Short: "Measure the round trip to the worker",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return ping(cmd.Context(), cmd.OutOrStdout(), opts)
			},
		},
		&cobra.Command{
			Use:   "tasks",
			Short: "List the tasks the worker can execute",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listTasks(cmd.Context(), cmd.OutOrStdout(), opts)
			},
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show per-task execution counters of the worker",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return stats(cmd.Context(), cmd.OutOrStdout(), opts)
			},
		},
		&cobra.Command{
			Use:   "call <task> [json-arg]",
			Short: "Dispatch one task and print its outcome",
			Example: `  chainflow-ctl call double 21
  chainflow-ctl call read_csv '"data.csv"'`,
			Args: cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				arg := ""
				if len(args) == 2 {
					arg = args[1]
				}
				return call(cmd.Context(), cmd.OutOrStdout(), opts, args[0], arg)
			},
		},
	)
	return root
}
