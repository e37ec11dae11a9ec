package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// taskEnvelope carries every task through River under a single job kind.
// The registered executor is looked up by TaskName at run time.
type taskEnvelope struct {
	TaskName string          `json:"task_name"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

func (taskEnvelope) Kind() string { return "portmail:task" }

func newEnvelope(name string, payload any, opts ...EnqueueOption) (*taskEnvelope, *river.InsertOpts, error) {
	env := &taskEnvelope{TaskName: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		env.Payload = raw
	}

	eo := enqueueOptions{}
	for _, opt := range opts {
		opt(&eo)
	}
	return env, &river.InsertOpts{MaxAttempts: eo.maxAttempts}, nil
}

type envelopeWorker struct {
	river.WorkerDefaults[taskEnvelope]
	registry *taskRegistry
	logger   *slog.Logger
}

func (w *envelopeWorker) Work(ctx context.Context, rj *river.Job[taskEnvelope]) error {
	name := rj.Args.TaskName
	exec, ok := w.registry.get(name)
	if !ok {
		// Retrying cannot make an unregistered task appear.
		return river.JobCancel(fmt.Errorf("%w: %s", ErrUnknownTask, name))
	}

	start := time.Now()
	err := exec.Execute(ctx, rj.Args.Payload)
	attrs := []slog.Attr{
		slog.String("task", name),
		slog.Int64("river_job_id", rj.ID),
		slog.Int("attempt", rj.Attempt),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		w.logger.LogAttrs(ctx, slog.LevelError, "task failed", append(attrs, slog.String("error", err.Error()))...)
		return err
	}
	w.logger.LogAttrs(ctx, slog.LevelDebug, "task completed", attrs...)
	return nil
}
