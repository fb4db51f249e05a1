package main

import "github.com/spf13/cobra"

// Options holds CLI options for the generator.
type Options struct {
	ConfigPath string
	Out        string
	Records    int
	Seed       uint64
}

func newCommand() *cobra.Command {
	var opts Options
	cmd := &cobra.Command{
		Use:           "chainflow-gendata",
		Short:         "Generate fake employee records as CSV",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(opts)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	fs := cmd.Flags()
	fs.StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	fs.StringVarP(&opts.Out, "out", "o", "data.csv", "output CSV path")
	fs.IntVarP(&opts.Records, "records", "n", 100, "number of records")
	fs.Uint64Var(&opts.Seed, "seed", 0, "random seed; 0 picks one")
	return cmd
}
