// Package registry maps stable task names to their local implementations.
// The scheduler and the worker each build one at startup from the same
// set of names; only names cross the wire.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"chainflow/pkg/api"
)

// ErrUnknownTask is returned when a name has no registered implementation.
var ErrUnknownTask = errors.New("unknown task")

// Registry is safe for concurrent lookups. Registration is expected to
// happen before the registry is handed to a worker.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]api.Task
}

func New() *Registry { return &Registry{tasks: make(map[string]api.Task)} }

// Register adds t under t.Name(). Names are unique.
func (r *Registry) Register(t api.Task) error {
	name := strings.TrimSpace(t.Name())
	if name == "" {
		return errors.New("task name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("task %q already registered", name)
	}
	r.tasks[name] = t
	zap.L().Debug("task registered", zap.String("task", name))
	return nil
}

// MustRegister registers every task and panics on the first error.
func (r *Registry) MustRegister(tasks ...api.Task) {
	for _, t := range tasks {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the implementation for name.
func (r *Registry) Resolve(name string) (api.Task, error) {
	r.mu.RLock()
	t, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTask, name)
	}
	return t, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.tasks))
	for n := range r.tasks {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Missing returns the names in want that are not registered, in order.
func (r *Registry) Missing(want []string) []string {
	var out []string
	for _, n := range want {
		if !r.Has(n) {
			out = append(out, n)
		}
	}
	return out
}
