package job

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"sync"
)

// executor runs one task from its raw JSON payload.
type executor interface {
	Execute(ctx context.Context, payload json.RawMessage) error
}

type taskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]executor
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: make(map[string]executor)}
}

func (r *taskRegistry) register(name string, e executor) {
	r.mu.Lock()
	r.tasks[name] = e
	r.mu.Unlock()
}

func (r *taskRegistry) get(name string) (executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[name]
	return e, ok && e != nil
}

func (r *taskRegistry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tasks))
}

// Task is a named handler with a typed payload.
type Task[P any] interface {
	Name() string
	Handle(ctx context.Context, payload P) error
}

// typedExecutor decodes the payload into P before calling the task.
type typedExecutor[P any] struct {
	task Task[P]
}

func (e typedExecutor[P]) Execute(ctx context.Context, raw json.RawMessage) error {
	var payload P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return errors.Join(ErrInvalidPayload, err)
		}
	}
	return e.task.Handle(ctx, payload)
}
