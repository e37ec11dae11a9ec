package job

import (
	"context"
	"log/slog"
	"time"
)

type config struct {
	registry   *taskRegistry
	schedules  []schedule
	logger     *slog.Logger
	maxWorkers int
	jobTimeout time.Duration
}

type schedule struct {
	name   string
	expr   string
	handle func(context.Context) error
}

func newConfig() *config {
	return &config{
		registry:   newTaskRegistry(),
		logger:     slog.New(slog.DiscardHandler),
		maxWorkers: defaultMaxWorkers,
	}
}

// Option configures a Manager.
type Option func(*config)

// WithTask registers a task that is run on demand through Enqueue or EnqueueTx.
//
//	job.WithTask[jobs.CleanupPayload](jobs.NewAttachmentCleanup(store, log))
func WithTask[P any](task Task[P]) Option {
	return func(c *config) {
		c.registry.register(task.Name(), typedExecutor[P]{task: task})
	}
}

// ScheduledTask is a task fired by the manager on a cron schedule.
type ScheduledTask interface {
	Name() string
	Schedule() string
	Handle(ctx context.Context) error
}

// WithScheduledTask registers a periodic task.
func WithScheduledTask(task ScheduledTask) Option {
	return func(c *config) {
		c.schedules = append(c.schedules, schedule{
			name:   task.Name(),
			expr:   task.Schedule(),
			handle: task.Handle,
		})
	}
}

// WithLogger sets the logger used by the manager and its workers.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers caps concurrent task runs. Non-positive values keep the default of 10.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithJobTimeout bounds one task run. Zero keeps River's default.
func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		c.jobTimeout = d
	}
}

type enqueueOptions struct {
	maxAttempts int
}

// EnqueueOption configures one enqueued run.
type EnqueueOption func(*enqueueOptions)

// MaxAttempts limits how often a failing run is retried.
func MaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}
