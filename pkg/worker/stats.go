package worker

import (
	"sort"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"chainflow/pkg/api"
	"chainflow/pkg/memkv"
	"chainflow/pkg/protocol"
)

// statsStore keeps one JSON record of execution counters per task in an
// in-memory KV. Records never expire.
type statsStore struct {
	kv  *memkv.Store
	clk clock.PassiveClock

	mu    sync.Mutex
	index map[string]struct{}
}

func newStatsStore(clk clock.Clock) *statsStore {
	return &statsStore{
		kv:    memkv.New(memkv.Options{Shards: 4, Clock: clk}),
		clk:   clk,
		index: make(map[string]struct{}),
	}
}

func keyTask(name string) string { return "task:" + name }

// record folds one execution into the counters of task.
func (s *statsStore) record(task string, out api.Outcome, took time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, _ := s.getLocked(task)
	st.Task = task
	st.Runs++
	if out.Failed() {
		st.Failures++
		st.LastError = out.Message
	}
	st.LastRun = s.clk.Now().UnixMilli()
	st.TotalMs += took.Milliseconds()

	b, err := jsoniter.Marshal(st)
	if err != nil {
		zap.L().Warn("task stats encode failed", zap.String("task", task), zap.Error(err))
		return
	}
	s.kv.Set(keyTask(task), b, 0)
	s.index[task] = struct{}{}
}

func (s *statsStore) getLocked(task string) (protocol.TaskStats, bool) {
	var st protocol.TaskStats
	b, ok := s.kv.Get(keyTask(task))
	if !ok {
		return st, false
	}
	if err := jsoniter.Unmarshal(b, &st); err != nil {
		return protocol.TaskStats{}, false
	}
	return st, true
}

// snapshot returns the counters of every task that ran, sorted by name.
func (s *statsStore) snapshot() []protocol.TaskStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.index))
	for n := range s.index {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]protocol.TaskStats, 0, len(names))
	for _, n := range names {
		if st, ok := s.getLocked(n); ok {
			out = append(out, st)
		}
	}
	return out
}

func (s *statsStore) close() { s.kv.Close() }
