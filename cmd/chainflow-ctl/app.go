package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"chainflow/pkg/config"
	"chainflow/pkg/dispatch"
	"chainflow/pkg/observability"
	"chainflow/pkg/value"
)

var argJSON = jsoniter.Config{UseNumber: true}.Froze()

// connect loads the config, applies flag overrides and dials the worker.
// The returned func closes the client and flushes the logger.
func connect(ctx context.Context, opts Options) (*dispatch.Client, context.Context, func(), error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Address != "" {
		cfg.Dispatch.Address = opts.Address
	}
	if opts.Kind != "" {
		cfg.Dispatch.Kind = opts.Kind
	}
	if opts.Format != "" {
		cfg.Dispatch.Format = opts.Format
	}
	dopts, err := dispatch.OptionsFromConfig(cfg.Dispatch)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	ctx, cancel := withDeadline(ctx, opts.Timeout)
	c, err := dispatch.Dial(ctx, dopts)
	if err != nil {
		cancel()
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return c, ctx, func() {
		_ = c.Close()
		cancel()
		_ = logger.Sync()
	}, nil
}

// withDeadline bounds ctx by d. Zero means no deadline.
func withDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func ping(ctx context.Context, out io.Writer, opts Options) error {
	c, ctx, done, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer done()
	rtt, err := c.Ping(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "pong in %s\n", rtt)
	return err
}

func listTasks(ctx context.Context, out io.Writer, opts Options) error {
	c, ctx, done, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer done()
	rep, err := c.ListTasks(ctx)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(out, "worker %s\n", rep.Worker); err != nil {
		return err
	}
	for _, t := range rep.Tasks {
		if _, err := fmt.Fprintln(out, "  "+t); err != nil {
			return err
		}
	}
	return nil
}

func stats(ctx context.Context, out io.Writer, opts Options) error {
	c, ctx, done, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer done()
	rep, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TASK\tRUNS\tFAILURES\tTOTAL\tLAST RUN\tLAST ERROR\n")
	for _, st := range rep.Stats {
		last := time.UnixMilli(st.LastRun).Format(time.RFC3339)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\n",
			st.Task, st.Runs, st.Failures, time.Duration(st.TotalMs)*time.Millisecond, last, st.LastError)
	}
	return tw.Flush()
}

func call(ctx context.Context, out io.Writer, opts Options, task, rawArg string) error {
	arg, err := parseArg(rawArg)
	if err != nil {
		return err
	}
	c, ctx, done, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer done()

	res, err := c.Dispatch(ctx, task, arg)
	if err != nil {
		return err
	}
	if res.Failed() {
		zap.L().Debug("task failed", zap.String("task", task), zap.String("error", res.Message))
		return errors.New(res.String())
	}
	b, err := jsoniter.MarshalIndent(value.ToAny(res.Value), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}

// parseArg decodes a JSON argument. Integers stay integers.
func parseArg(raw string) (value.Value, error) {
	if raw == "" {
		return value.Null(), nil
	}
	var x any
	if err := argJSON.UnmarshalFromString(raw, &x); err != nil {
		return value.Value{}, fmt.Errorf("argument is not JSON: %w", err)
	}
	return value.FromAny(x)
}
