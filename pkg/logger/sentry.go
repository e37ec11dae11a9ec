package logger

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	Release     string `env:"SENTRY_RELEASE"`
	// WarnAsLog also ships warnings to Sentry logs; errors always create issues.
	WarnAsLog bool `env:"SENTRY_WARN_AS_LOG" envDefault:"true"`
}

// newSentryHandler initializes the Sentry SDK and returns a handler for it.
// ok is false when no DSN is set or init fails; the failure is written to fallback.
func newSentryHandler(cfg SentryConfig, fallback slog.Handler) (h slog.Handler, flush func(), ok bool) {
	if cfg.DSN == "" {
		return nil, nil, false
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		slog.New(fallback).Error("failed to initialize Sentry", slog.String("error", err.Error()))
		return nil, nil, false
	}

	logLevel := []slog.Level{slog.LevelError}
	if cfg.WarnAsLog {
		logLevel = []slog.Level{slog.LevelWarn, slog.LevelError}
	}

	h = sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background())

	return h, func() { sentry.Flush(2 * time.Second) }, true
}
