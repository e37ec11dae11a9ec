package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// cronSchedule satisfies river.PeriodicSchedule.
type cronSchedule struct{ cron.Schedule }

func (s cronSchedule) Next(t time.Time) time.Time { return s.Schedule.Next(t) }

// ParseSchedule accepts five-field cron expressions and descriptors such as
// "@hourly" or "@every 30s".
func ParseSchedule(expr string) (river.PeriodicSchedule, error) {
	s, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSchedule, expr, err)
	}
	return cronSchedule{s}, nil
}

// periodicJobs turns registered schedules into River periodic jobs and
// registers their handlers. Only the elected leader inserts periodic jobs,
// so each tick yields one run across all replicas.
func periodicJobs(cfg *config) ([]*river.PeriodicJob, error) {
	out := make([]*river.PeriodicJob, 0, len(cfg.schedules))
	for _, sc := range cfg.schedules {
		schedule, err := ParseSchedule(sc.expr)
		if err != nil {
			return nil, err
		}

		name := sc.name
		out = append(out, river.NewPeriodicJob(schedule,
			func() (river.JobArgs, *river.InsertOpts) {
				// A missed tick is covered by the next one.
				return &taskEnvelope{TaskName: name}, &river.InsertOpts{MaxAttempts: 1}
			},
			&river.PeriodicJobOpts{},
		))
		cfg.registry.register(name, periodicHandler(sc.handle))
	}
	return out, nil
}

// periodicHandler runs a handler that takes no payload.
type periodicHandler func(context.Context) error

func (h periodicHandler) Execute(ctx context.Context, _ json.RawMessage) error { return h(ctx) }
