package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/portmail/portmail/internal/attachment"
	"github.com/portmail/portmail/internal/config"
	"github.com/portmail/portmail/internal/dispatch"
	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/internal/metrics"
	"github.com/portmail/portmail/migrations"
	"github.com/portmail/portmail/pkg/cache"
	"github.com/portmail/portmail/pkg/db"
	"github.com/portmail/portmail/pkg/job"
	"github.com/portmail/portmail/pkg/mailer"
	"github.com/portmail/portmail/pkg/mailer/resend"
	"github.com/portmail/portmail/pkg/mailer/smtp"
	"github.com/portmail/portmail/pkg/redis"
	"github.com/portmail/portmail/pkg/storage"
)

// attachmentCachePrefix namespaces cached attachment bytes in Redis.
const attachmentCachePrefix = "portmail:attachment"

// Bounds of the in-process attachment cache used when Redis is not configured.
const (
	memoryCacheEntries = 128
	memoryCacheBytes   = 64 << 20
)

// App holds the dependencies shared by every command.
type App struct {
	cfg    config.Config
	logger *slog.Logger

	pool       *pgxpool.Pool
	rdb        goredis.UniversalClient
	objects    storage.Storage
	store      *jobs.PostgresStore
	registry   *prometheus.Registry
	dispatcher *dispatch.Dispatcher

	closers []func(context.Context) error
}

// New connects to the database and builds the dispatcher. Close releases
// everything New opened.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{cfg: cfg, logger: logger}

	if err := a.init(ctx); err != nil {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
			logger.WarnContext(ctx, "cleanup after failed start", slog.String("error", closeErr.Error()))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	pool, err := db.Connect(ctx, a.cfg.DB)
	if err != nil {
		return fmt.Errorf("app: connect database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, db.Shutdown(pool))

	if a.cfg.DB.AutoMigrate {
		if err := migrate(ctx, pool, a.cfg, a.logger); err != nil {
			return err
		}
	}

	if a.cfg.Redis.URL != "" {
		rdb, err := redis.Open(ctx, a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("app: connect redis: %w", err)
		}
		a.rdb = rdb
		a.closers = append(a.closers, redis.Shutdown(rdb))
	}

	objects, err := newObjectStore(a.cfg)
	if err != nil {
		return err
	}
	a.objects = objects

	m, err := newMailer(a.cfg)
	if err != nil {
		return err
	}

	a.registry = prometheus.NewRegistry()
	var sink metrics.Sink = metrics.NewNoopSink()
	if a.cfg.MetricsEnabled {
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sink = metrics.NewPrometheusSink(a.registry, a.logger)
	}

	a.store = jobs.NewPostgresStore(pool)
	resolver := attachment.NewResolver(objects,
		attachment.WithCache(a.attachmentCache(), a.cfg.AttachmentCacheTTL),
		attachment.WithMaxSize(a.cfg.Storage.MaxObjectSize),
	)
	a.dispatcher = dispatch.New(a.store, resolver, m,
		dispatch.WithBatchSize(a.cfg.BatchSize),
		dispatch.WithLogger(a.logger),
		dispatch.WithMetrics(sink),
	)
	return nil
}

// attachmentCache prefers Redis so that bytes are shared across processes.
func (a *App) attachmentCache() cache.Cache[[]byte] {
	if a.rdb != nil {
		return cache.NewRedis(a.rdb, attachmentCachePrefix, a.cfg.AttachmentCacheTTL)
	}
	c := cache.NewMemory[[]byte](cache.WithMaxEntries(memoryCacheEntries), cache.WithMaxBytes(memoryCacheBytes))
	a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	return c
}

// Sweep runs one sweep at the current instant, as the CLI trigger.
func (a *App) Sweep(ctx context.Context) (dispatch.Report, error) {
	return a.dispatcher.RunSweepFrom(ctx, time.Now().UTC(), metrics.TriggerCLI)
}

// Close runs the shutdown hooks in reverse order of registration.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.ErrorContext(ctx, "shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Migrate applies the application and job queue migrations and exits.
func Migrate(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("app: connect database: %w", err)
	}
	defer func() { _ = db.Shutdown(pool)(context.WithoutCancel(ctx)) }()

	return migrate(ctx, pool, cfg, logger)
}

func migrate(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, logger *slog.Logger) error {
	if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, logger); err != nil {
		return fmt.Errorf("app: migrate: %w", err)
	}
	if err := job.MigrateSchema(ctx, pool); err != nil {
		return fmt.Errorf("app: migrate job queue: %w", err)
	}
	logger.InfoContext(ctx, "migrations applied")
	return nil
}

func newObjectStore(cfg config.Config) (storage.Storage, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.StorageMemory:
		return storage.NewMemory(), nil
	default:
		s, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("app: object storage: %w", err)
		}
		return s, nil
	}
}

func newMailer(cfg config.Config) (*mailer.Mailer, error) {
	var (
		sender mailer.Sender
		err    error
	)
	switch strings.ToLower(cfg.Mail.Provider) {
	case config.ProviderResend:
		sender, err = resend.New(cfg.Resend)
	default:
		sender, err = smtp.New(cfg.SMTP)
	}
	if err != nil {
		return nil, fmt.Errorf("app: mail sender: %w", err)
	}

	m, err := mailer.New(sender, cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("app: mailer: %w", err)
	}
	return m, nil
}
