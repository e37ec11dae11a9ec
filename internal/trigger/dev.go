package trigger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/portmail/portmail/internal/metrics"
)

// DefaultDevInterval is the period of the development self-trigger.
const DefaultDevInterval = 60 * time.Second

// DevTicker starts a sweep on a fixed interval in the serving process.
// A tick that fires while the previous sweep is still running is dropped.
type DevTicker struct {
	sweeper  Sweeper
	interval time.Duration
	now      Clock
	logger   *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewDevTicker creates the ticker. A non-positive interval uses DefaultDevInterval.
func NewDevTicker(s Sweeper, interval time.Duration, logger *slog.Logger) *DevTicker {
	if interval <= 0 {
		interval = DefaultDevInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DevTicker{
		sweeper:  s,
		interval: interval,
		now:      utcNow,
		logger:   logger.With(slog.String("component", "trigger.dev")),
	}
}

// Run blocks until ctx is done, then waits for an in-flight sweep to finish.
func (d *DevTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.logger.InfoContext(ctx, "development self-trigger started", slog.Duration("interval", d.interval))

	for {
		select {
		case <-ctx.Done():
			d.wg.Wait()
			d.logger.InfoContext(ctx, "development self-trigger stopped")
			return nil
		case <-ticker.C:
			d.fire(ctx)
		}
	}
}

// fire starts a sweep unless one is already running. It reports whether a
// sweep was started.
func (d *DevTicker) fire(ctx context.Context) bool {
	if !d.running.CompareAndSwap(false, true) {
		d.logger.DebugContext(ctx, "previous sweep still running, tick dropped")
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.running.Store(false)

		report, err := d.sweeper.RunSweepFrom(ctx, d.now(), metrics.TriggerDev)
		if err != nil {
			d.logger.ErrorContext(ctx, "self-triggered sweep failed", slog.String("error", err.Error()))
			return
		}
		if report.Processed > 0 {
			d.logger.InfoContext(ctx, "self-triggered sweep",
				slog.Int("processed", report.Processed),
				slog.Int("sent", report.Sent),
				slog.Int("failed", report.Failed),
			)
		}
	}()
	return true
}
