package trigger

import (
	"context"
	"log/slog"

	"github.com/portmail/portmail/internal/metrics"
)

const (
	// ScheduledTaskName is the periodic task registered on the job manager.
	ScheduledTaskName = "dispatch.sweep"

	// DefaultSchedule runs a sweep every minute.
	DefaultSchedule = "* * * * *"
)

// Scheduled is a periodic task that runs one sweep per firing.
type Scheduled struct {
	sweeper  Sweeper
	schedule string
	now      Clock
	logger   *slog.Logger
}

// NewScheduled creates the periodic sweep task. An empty schedule uses DefaultSchedule.
func NewScheduled(s Sweeper, schedule string, logger *slog.Logger) *Scheduled {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduled{
		sweeper:  s,
		schedule: schedule,
		now:      utcNow,
		logger:   logger.With(slog.String("component", "trigger.cron")),
	}
}

func (t *Scheduled) Name() string     { return ScheduledTaskName }
func (t *Scheduled) Schedule() string { return t.schedule }

// Handle runs the sweep. Per-job failures are part of the report; only a
// sweep-level error fails the task.
func (t *Scheduled) Handle(ctx context.Context) error {
	report, err := t.sweeper.RunSweepFrom(ctx, t.now(), metrics.TriggerSchedule)
	if err != nil {
		t.logger.ErrorContext(ctx, "scheduled sweep failed", slog.String("error", err.Error()))
		return err
	}
	if report.Failed > 0 {
		t.logger.WarnContext(ctx, "scheduled sweep had failures",
			slog.Int("failed", report.Failed),
			slog.Int("sent", report.Sent),
		)
	}
	return nil
}
