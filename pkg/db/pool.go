package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

var (
	ErrNoConnString = errors.New("db: DATABASE_CONN_URL is not set")
	ErrBadConfig    = errors.New("db: invalid connection settings")
	ErrUnreachable  = errors.New("db: database unreachable")
	ErrMigrate      = errors.New("db: migration failed")
)

// Config is the connection section of the app configuration.
type Config struct {
	ConnectionString string `env:"DATABASE_CONN_URL"`

	MigrationsTable string `env:"DATABASE_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
	AutoMigrate     bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"false"`

	MaxConns        int32         `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MinConns        int32         `env:"DATABASE_MIN_CONNS" envDefault:"2"`
	MaxConnIdleTime time.Duration `env:"DATABASE_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime time.Duration `env:"DATABASE_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Startup attempts back off exponentially from RetryInterval.
	RetryAttempts int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"2s"`
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	if c.ConnectionString == "" {
		return nil, ErrNoConnString
	}
	pc, err := pgxpool.ParseConfig(c.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrBadConfig, err)
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 && c.MinConns <= pc.MaxConns {
		pc.MinConns = c.MinConns
	}
	if c.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = c.MaxConnLifetime
	}
	return pc, nil
}

// Connect opens a pool and pings it. Startup races with the database
// container are absorbed by retrying with exponential backoff.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}
	retries := uint64(max(cfg.RetryAttempts, 1) - 1)
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(interval))

	var pool *pgxpool.Pool
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return pool, nil
}

// Healthcheck pings the pool.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return ErrUnreachable
		}
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrUnreachable, err)
		}
		return nil
	}
}

// Shutdown closes the pool. It has the closer signature used by the app.
func Shutdown(pool *pgxpool.Pool) func(context.Context) error {
	return func(context.Context) error {
		pool.Close()
		return nil
	}
}
