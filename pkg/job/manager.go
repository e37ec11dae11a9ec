package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const defaultMaxWorkers = 10

// Manager owns a River client together with the tasks and schedules it serves.
type Manager struct {
	pool     *pgxpool.Pool
	client   *river.Client[pgx.Tx]
	registry *taskRegistry
	logger   *slog.Logger
	running  atomic.Bool
}

// NewManager builds the River client. Tasks can be enqueued inside a
// transaction before Start; they run once the manager is started.
func NewManager(pool *pgxpool.Pool, opts ...Option) (*Manager, error) {
	if pool == nil {
		return nil, ErrPoolRequired
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	periodic, err := periodicJobs(cfg)
	if err != nil {
		return nil, err
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &envelopeWorker{registry: cfg.registry, logger: cfg.logger})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:       map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: cfg.maxWorkers}},
		Workers:      workers,
		PeriodicJobs: periodic,
		JobTimeout:   cfg.jobTimeout,
		Logger:       cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("job: create client: %w", err)
	}

	return &Manager{
		pool:     pool,
		client:   client,
		registry: cfg.registry,
		logger:   cfg.logger,
	}, nil
}

// Start begins working the queue and firing schedules.
func (m *Manager) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if err := m.client.Start(ctx); err != nil {
		m.running.Store(false)
		return fmt.Errorf("job: start client: %w", err)
	}
	m.logger.Info("job manager started", slog.Any("tasks", m.registry.names()))
	return nil
}

// Stop lets running tasks finish and stops the client. Stopping a manager
// that is not running is a no-op.
func (m *Manager) Stop(ctx context.Context) error {
	if !m.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := m.client.Stop(ctx); err != nil {
		return fmt.Errorf("job: stop client: %w", err)
	}
	m.logger.Info("job manager stopped")
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (m *Manager) Running() bool {
	return m != nil && m.running.Load()
}

// Shutdown adapts Stop to the closer signature used by the app.
func (m *Manager) Shutdown() func(context.Context) error {
	return m.Stop
}

// Enqueue inserts a run of a registered task.
func (m *Manager) Enqueue(ctx context.Context, name string, payload any, opts ...EnqueueOption) error {
	args, insert, err := m.envelope(name, payload, opts)
	if err != nil {
		return err
	}
	if _, err := m.client.Insert(ctx, args, insert); err != nil {
		return fmt.Errorf("job: enqueue %s: %w", name, err)
	}
	return nil
}

// EnqueueTx inserts a run of a registered task inside tx. The run only
// becomes visible to workers when tx commits.
func (m *Manager) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...EnqueueOption) error {
	args, insert, err := m.envelope(name, payload, opts)
	if err != nil {
		return err
	}
	if _, err := m.client.InsertTx(ctx, tx, args, insert); err != nil {
		return fmt.Errorf("job: enqueue %s in tx: %w", name, err)
	}
	return nil
}

func (m *Manager) envelope(name string, payload any, opts []EnqueueOption) (*taskEnvelope, *river.InsertOpts, error) {
	if _, ok := m.registry.get(name); !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	return newEnvelope(name, payload, opts...)
}

// MigrateSchema applies River's own migrations.
func MigrateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return ErrPoolRequired
	}
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("job: create migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("job: migrate river schema: %w", err)
	}
	return nil
}

// Healthcheck fails while the manager is stopped or when the River tables
// cannot be read through its pool.
func Healthcheck(m *Manager) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if !m.Running() {
			return ErrNotRunning
		}
		if _, err := m.pool.Exec(ctx, "SELECT 1 FROM river_job LIMIT 1"); err != nil {
			return fmt.Errorf("job: river tables unreachable: %w", err)
		}
		return nil
	}
}
