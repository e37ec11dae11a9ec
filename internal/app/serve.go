package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/portmail/portmail/internal/httpapi"
	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/internal/metrics"
	"github.com/portmail/portmail/internal/templates"
	"github.com/portmail/portmail/internal/trigger"
	"github.com/portmail/portmail/pkg/db"
	"github.com/portmail/portmail/pkg/health"
	"github.com/portmail/portmail/pkg/job"
	"github.com/portmail/portmail/pkg/redis"
)

const (
	readTimeout       = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20

	// writeTimeout covers a sweep request, which answers only after the
	// whole batch has been sent.
	writeTimeout = 5 * time.Minute

	defaultShutdownTimeout = 30 * time.Second
)

// Serve runs the HTTP server, the job manager with the scheduled sweep and,
// in development, the self-trigger. It blocks until ctx is cancelled or a
// component fails, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	manager, err := job.NewManager(a.pool,
		job.WithLogger(a.logger),
		job.WithMaxWorkers(a.cfg.JobWorkers),
		job.WithJobTimeout(a.cfg.JobTimeout),
		job.WithTask[jobs.CleanupPayload](jobs.NewAttachmentCleanup(a.objects, a.logger)),
		job.WithScheduledTask(trigger.NewScheduled(a.dispatcher, a.cfg.SweepSchedule, a.logger)),
	)
	if err != nil {
		return fmt.Errorf("app: job manager: %w", err)
	}

	handler := a.router(manager)

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("app: listen: %w", err)
	}

	if err := manager.Start(context.WithoutCancel(ctx)); err != nil {
		_ = ln.Close()
		return fmt.Errorf("app: start job manager: %w", err)
	}
	a.closers = append(a.closers, manager.Shutdown())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.runServer(gctx, handler, ln)
	})
	if a.cfg.IsDevelopment() && a.cfg.DevSelfTrigger {
		ticker := trigger.NewDevTicker(a.dispatcher, a.cfg.DevTriggerInterval, a.logger)
		g.Go(func() error {
			return ticker.Run(gctx)
		})
	}

	return g.Wait()
}

func (a *App) router(manager *job.Manager) http.Handler {
	checks := health.Checks{
		"database": db.Healthcheck(a.pool),
		"jobs":     job.Healthcheck(manager),
	}
	if a.rdb != nil {
		checks["redis"] = redis.Healthcheck(a.rdb)
	}

	if a.cfg.IsProduction() && a.cfg.CronSecret == "" {
		a.logger.Warn("CRON_SECRET is not set; the sweep endpoint answers with a configuration error")
	}

	cfg := httpapi.Config{
		Templates: templates.Defaults(),
		Sweep: trigger.NewHTTPHandler(a.dispatcher,
			trigger.HTTPConfig{
				Secret:      a.cfg.CronSecret,
				Development: a.cfg.IsDevelopment(),
				Production:  a.cfg.IsProduction(),
			},
			trigger.WithHTTPLogger(a.logger),
		),
		Readiness:      checks,
		CORSOrigins:    a.cfg.CORSAllowedOrigins,
		MaxUploadBytes: a.cfg.MaxUploadBytes,
		RequestTimeout: a.cfg.APIRequestTimeout,
		Logger:         a.logger,
	}

	if a.cfg.MetricsEnabled {
		cfg.Metrics = metrics.Handler(a.registry)
	}

	if a.cfg.APIEnabled() {
		cfg.Jobs = jobs.NewService(a.store, manager, a.objects,
			jobs.WithMaxUploadSize(a.cfg.MaxUploadBytes),
			jobs.WithServiceLogger(a.logger),
		)
		cfg.Auth = httpapi.NewAuthenticator(a.cfg.JWTSecret, a.logger)
	} else {
		a.logger.Warn("AUTH_JWT_SECRET is not set; the job API is disabled")
	}

	return httpapi.NewRouter(cfg)
}

// runServer serves on ln until ctx is done, then drains the server.
func (a *App) runServer(ctx context.Context, handler http.Handler, ln net.Listener) error {
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	timeout := a.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("app: shutdown server: %w", err)
	}
	return nil
}
