// Package worker executes dispatched tasks and answers the scheduler.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"chainflow/pkg/api"
	"chainflow/pkg/memkv"
	"chainflow/pkg/protocol"
	"chainflow/pkg/protocol/codec"
	"chainflow/pkg/registry"
	"chainflow/pkg/value"
)

// Options configure a Worker.
type Options struct {
	// Name identifies the worker in control replies. Empty picks a random one.
	Name string
	// ReplyTTL keeps replies for retried requests. Zero disables the cache.
	ReplyTTL time.Duration
	// FragmentSize splits large replies; zero uses the stream default.
	FragmentSize int
	Codecs       *codec.Registry
	// Clock drives reply expiry.
	Clock clock.Clock
}

// Worker resolves task names through a registry and runs them one at a time.
type Worker struct {
	name     string
	reg      *registry.Registry
	codecs   *codec.Registry
	replies  *memkv.Store
	ttl      time.Duration
	fragSize int
	clk      clock.Clock
	stats    *statsStore
}

var _ api.Executor = (*Worker)(nil)

func New(reg *registry.Registry, opts Options) *Worker {
	w := &Worker{
		name:     opts.Name,
		reg:      reg,
		codecs:   opts.Codecs,
		ttl:      opts.ReplyTTL,
		fragSize: opts.FragmentSize,
	}
	if w.name == "" {
		w.name = "worker-" + uuid.NewString()[:8]
	}
	if w.codecs == nil {
		w.codecs = codec.NewRegistry()
	}
	w.clk = opts.Clock
	if w.clk == nil {
		w.clk = clock.RealClock{}
	}
	if w.ttl > 0 {
		w.replies = memkv.New(memkv.Options{Shards: 16, Clock: w.clk})
	}
	w.stats = newStatsStore(w.clk)
	return w
}

func (w *Worker) Name() string { return w.name }

// Close releases the reply cache and the stats store.
func (w *Worker) Close() {
	if w.replies != nil {
		w.replies.Close()
	}
	w.stats.close()
}

// Stats returns the execution counters of every task that has run.
func (w *Worker) Stats() []protocol.TaskStats { return w.stats.snapshot() }

func (w *Worker) CanHandle(name string) bool { return w.reg.Has(name) }

// Execute runs task once. Errors and panics raised by the task become a
// failed outcome; they never escape.
func (w *Worker) Execute(ctx context.Context, task string, arg value.Value) (out api.Outcome) {
	zap.L().Info("Executing task: "+task, zap.String("task", task))
	t, err := w.reg.Resolve(task)
	if err != nil {
		zap.L().Warn("task not found", zap.String("task", task))
		return api.Failure(err.Error())
	}
	start := w.clk.Now()
	defer func() { w.stats.record(task, out, w.clk.Since(start)) }()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("task panicked", zap.String("task", task), zap.Any("panic", r))
			out = api.Failure(fmt.Sprint(r))
		}
	}()
	v, err := t.Run(ctx, arg)
	if err != nil {
		zap.L().Info("task failed", zap.String("task", task), zap.Error(err))
		return api.Failure(err.Error())
	}
	return api.Success(v)
}
