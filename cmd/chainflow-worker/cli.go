package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Options holds CLI options for the worker.
type Options struct {
	ConfigPath string
	Listen     string
	Kind       string
}

func newCommand() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:           "chainflow-worker",
		Short:         "Execute dispatched tasks one at a time",
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
	fs.StringVar(&opts.Listen, "listen", "", "address to listen on (overrides worker.listen)")
	fs.StringVar(&opts.Kind, "kind", "", "transport kind: tcp|quic|mem (overrides worker.kind)")
	return cmd
}
