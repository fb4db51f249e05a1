// Package scheduler drives workflows through a Dispatcher once their start
// time has arrived. One workflow runs to completion before the next starts.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"chainflow/pkg/api"
	"chainflow/pkg/config"
)

// PollMode selects how Run waits for workflows that are not ready yet.
type PollMode string

const (
	// PollEvery re-checks readiness after a fixed interval.
	PollEvery PollMode = config.PollInterval
	// PollNextStart sleeps until the earliest pending start time.
	PollNextStart PollMode = config.PollNextStart
)

// FailurePolicy selects what happens after a step returns a failed outcome.
type FailurePolicy string

const (
	// FailContinue feeds the failure's error string to the next step.
	FailContinue FailurePolicy = config.FailureContinue
	// FailHalt stops the workflow and marks it failed.
	FailHalt FailurePolicy = config.FailureHalt
)

// DefaultPollInterval is the wait between readiness checks in PollEvery mode.
const DefaultPollInterval = time.Second

type Options struct {
	PollInterval  time.Duration
	PollMode      PollMode
	FailurePolicy FailurePolicy
	// Clock defaults to the real clock.
	Clock clock.Clock
}

// OptionsFromConfig maps the scheduler section of the config file.
func OptionsFromConfig(c config.SchedulerConfig) Options {
	return Options{
		PollInterval:  c.PollInterval,
		PollMode:      PollMode(c.PollMode),
		FailurePolicy: FailurePolicy(c.FailurePolicy),
	}
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.PollMode == "" {
		o.PollMode = PollEvery
	}
	if o.FailurePolicy == "" {
		o.FailurePolicy = FailContinue
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	return o
}

// Report records how one workflow ended.
type Report struct {
	Name     string
	Result   api.Outcome
	State    State
	Started  time.Time
	Finished time.Time
}

// Scheduler owns a working set of workflows and the dispatcher they run on.
// It is not safe for concurrent use.
type Scheduler struct {
	d       api.Dispatcher
	opts    Options
	clk     clock.Clock
	pending []*Workflow
}

func New(d api.Dispatcher, opts Options, workflows ...*Workflow) *Scheduler {
	opts = opts.withDefaults()
	return &Scheduler{
		d:       d,
		opts:    opts,
		clk:     opts.Clock,
		pending: append([]*Workflow(nil), workflows...),
	}
}

// Pending returns the workflows still in the working set.
func (s *Scheduler) Pending() []*Workflow { return append([]*Workflow(nil), s.pending...) }

// IsReady reports whether w may start at now. A workflow is ready at its
// exact start time.
func IsReady(w *Workflow, now time.Time) bool {
	return !now.Before(w.start)
}

// Advance dispatches the remaining steps of w in order, each with the
// previous step's result as input, and returns the last result. A transport
// error stops the workflow where it is; the cursor still points at the
// step that was not answered.
func (s *Scheduler) Advance(ctx context.Context, w *Workflow) (api.Outcome, error) {
	log := zap.L().With(zap.String("workflow", w.name))
	w.running = true
	defer func() { w.running = false }()

	for !w.Done() {
		if err := ctx.Err(); err != nil {
			return w.last, err
		}
		task := w.tasks[w.cursor]
		in := w.nextInput()
		log.Debug("dispatching", zap.Int("step", w.cursor), zap.String("task", task))

		out, err := s.d.Dispatch(api.WithStep(ctx, w.name, w.cursor), task, in)
		if err != nil {
			return w.last, fmt.Errorf("workflow %s step %d (%s): %w", w.name, w.cursor, task, err)
		}
		w.last = out
		w.cursor++

		if out.Failed() {
			log.Warn("step failed", zap.Int("step", w.cursor-1), zap.String("task", task), zap.String("error", out.Message))
			if s.opts.FailurePolicy == FailHalt {
				w.failed = true
			}
		}
	}
	return w.last, nil
}

// Run drives every workflow in the working set to completion and returns a
// report per workflow in the order they finished. It returns early on a
// transport error or when ctx ends; unfinished workflows stay pending.
func (s *Scheduler) Run(ctx context.Context) ([]Report, error) {
	log := zap.L()
	log.Info("Scheduler started", zap.Int("workflows", len(s.pending)), zap.String("poll_mode", string(s.opts.PollMode)))

	var reports []Report
	for len(s.pending) > 0 {
		var waiting []*Workflow
		for i, w := range s.pending {
			if !IsReady(w, s.clk.Now()) {
				waiting = append(waiting, w)
				continue
			}
			log.Info("Processing workflow", zap.String("workflow", w.name))
			started := s.clk.Now()
			res, err := s.Advance(ctx, w)
			if err != nil {
				s.pending = append(waiting, s.pending[i:]...)
				return reports, err
			}
			r := Report{Name: w.name, Result: res, State: w.State(), Started: started, Finished: s.clk.Now()}
			reports = append(reports, r)
			log.Info("Workflow completed",
				zap.String("workflow", w.name),
				zap.Stringer("state", r.State),
				zap.Stringer("result", res))
		}
		s.pending = waiting
		if len(s.pending) == 0 {
			break
		}
		if err := s.wait(ctx); err != nil {
			return reports, err
		}
	}
	log.Info("All workflows completed")
	return reports, nil
}

func (s *Scheduler) wait(ctx context.Context) error {
	d := s.opts.PollInterval
	if s.opts.PollMode == PollNextStart {
		d = s.untilNextStart()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clk.After(d):
		return nil
	}
}

// untilNextStart is the time left before the earliest pending start.
func (s *Scheduler) untilNextStart() time.Duration {
	now := s.clk.Now()
	var earliest time.Time
	for i, w := range s.pending {
		if i == 0 || w.start.Before(earliest) {
			earliest = w.start
		}
	}
	return earliest.Sub(now)
}

// ErrNoDispatcher is returned by Validate when the scheduler has nothing to
// dispatch through.
var ErrNoDispatcher = errors.New("scheduler has no dispatcher")

// Validate checks the options and that every task reference is known to
// the caller. known may be nil to skip the task check.
func (s *Scheduler) Validate(known func(task string) bool) error {
	if s.d == nil {
		return ErrNoDispatcher
	}
	switch s.opts.PollMode {
	case PollEvery, PollNextStart:
	default:
		return fmt.Errorf("unknown poll mode %q", s.opts.PollMode)
	}
	switch s.opts.FailurePolicy {
	case FailContinue, FailHalt:
	default:
		return fmt.Errorf("unknown failure policy %q", s.opts.FailurePolicy)
	}
	if known == nil {
		return nil
	}
	var errs []error
	for _, w := range s.pending {
		for i, t := range w.tasks {
			if !known(t) {
				errs = append(errs, fmt.Errorf("workflow %s step %d: unknown task %q", w.name, i, t))
			}
		}
	}
	return errors.Join(errs...)
}
