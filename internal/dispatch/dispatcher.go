package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/portmail/portmail/internal/attachment"
	"github.com/portmail/portmail/internal/jobs"
	"github.com/portmail/portmail/internal/metrics"
	"github.com/portmail/portmail/pkg/mailer"
)

// DefaultBatchSize bounds the number of jobs one sweep selects.
const DefaultBatchSize = 50

var (
	// ErrNotConfigured is returned before any job is selected when the
	// dispatcher lacks a store, resolver or mail sender.
	ErrNotConfigured = errors.New("dispatch: dispatcher is not configured")

	// ErrSelectFailed wraps a failure to query due jobs. No job was claimed.
	ErrSelectFailed = errors.New("dispatch: failed to select due jobs")
)

// Store is the job store surface a sweep uses.
type Store interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]jobs.Job, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, msg string) error
}

// Resolver fetches attachment bytes.
type Resolver interface {
	Resolve(ctx context.Context, ref attachment.Ref) (attachment.File, error)
}

// Mailer sends one message.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (mailer.Result, error)
}

// Report summarizes one sweep.
type Report struct {
	Processed int        `json:"processed"`
	Sent      int        `json:"sent"`
	Failed    int        `json:"failed"`
	Errors    []JobError `json:"errors"`
}

// JobError is one failure listed in a Report.
type JobError struct {
	JobID string `json:"jobId"`
	Error string `json:"error"`
}

func newReport() Report {
	return Report{Errors: []JobError{}}
}

// Dispatcher runs sweeps over due jobs. Jobs of one sweep are processed
// sequentially; concurrent sweeps are kept apart by the per-job claim.
type Dispatcher struct {
	store     Store
	resolver  Resolver
	mailer    Mailer
	metrics   metrics.Sink
	logger    *slog.Logger
	batchSize int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.Sink) Option {
	return func(d *Dispatcher) {
		if s != nil {
			d.metrics = s
		}
	}
}

// New creates a dispatcher. Missing collaborators are reported by RunSweep.
func New(store Store, resolver Resolver, m Mailer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		resolver:  resolver,
		mailer:    m,
		metrics:   metrics.NewNoopSink(),
		logger:    slog.New(slog.DiscardHandler),
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With(slog.String("component", "dispatcher"))
	return d
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

type jobResult struct {
	outcome outcome
	err     error
}

// RunSweep processes up to the batch size of jobs due at now, earliest first.
// A failing job never stops the sweep; the returned error is reserved for
// configuration and selection failures, in which case no job was touched.
func (d *Dispatcher) RunSweep(ctx context.Context, now time.Time) (Report, error) {
	return d.run(ctx, now, metrics.TriggerDirect)
}

// RunSweepFrom is RunSweep with the name of the trigger recorded in metrics and logs.
func (d *Dispatcher) RunSweepFrom(ctx context.Context, now time.Time, trigger string) (Report, error) {
	return d.run(ctx, now, trigger)
}

func (d *Dispatcher) run(ctx context.Context, now time.Time, trigger string) (Report, error) {
	report := newReport()
	if d.store == nil || d.resolver == nil || d.mailer == nil {
		return report, ErrNotConfigured
	}

	start := time.Now()
	d.metrics.SweepStarted(trigger)
	log := d.logger.With(slog.String("trigger", trigger))

	due, err := d.store.ListDue(ctx, now, d.batchSize)
	if err != nil {
		err = errors.Join(ErrSelectFailed, err)
		d.metrics.SweepCompleted(trigger, time.Since(start), 0, 0, 0, err)
		log.ErrorContext(ctx, "sweep aborted", slog.String("error", err.Error()))
		return report, err
	}
	if len(due) == 0 {
		d.metrics.SweepCompleted(trigger, time.Since(start), 0, 0, 0, nil)
		log.DebugContext(ctx, "no due jobs")
		return report, nil
	}

	for i := range due {
		if ctx.Err() != nil {
			log.WarnContext(ctx, "sweep interrupted, remaining jobs stay pending",
				slog.Int("remaining", len(due)-i),
			)
			break
		}

		j := &due[i]
		res := d.process(ctx, j, now)
		switch res.outcome {
		case outcomeSkipped:
			if res.err != nil {
				report.Errors = append(report.Errors, JobError{JobID: j.ID.String(), Error: res.err.Error()})
			}
			continue
		case outcomeSent:
			report.Processed++
			report.Sent++
			d.metrics.JobOutcome(metrics.OutcomeSent)
		case outcomeFailed:
			report.Processed++
			report.Failed++
			report.Errors = append(report.Errors, JobError{JobID: j.ID.String(), Error: res.err.Error()})
			d.metrics.JobOutcome(metrics.OutcomeFailed)
		}
	}

	d.metrics.SweepCompleted(trigger, time.Since(start), report.Processed, report.Sent, report.Failed, nil)
	log.InfoContext(ctx, "sweep completed",
		slog.Int("selected", len(due)),
		slog.Int("processed", report.Processed),
		slog.Int("sent", report.Sent),
		slog.Int("failed", report.Failed),
		slog.Duration("duration", time.Since(start)),
	)
	return report, nil
}

// process claims one job and drives it to sent or failed.
func (d *Dispatcher) process(ctx context.Context, j *jobs.Job, now time.Time) jobResult {
	log := d.logger.With(slog.String("job_id", j.ID.String()))

	claimed, err := d.store.Claim(ctx, j.ID)
	if err != nil {
		log.ErrorContext(ctx, "failed to claim job", slog.String("error", err.Error()))
		return jobResult{outcome: outcomeSkipped, err: fmt.Errorf("claim: %w", err)}
	}
	if !claimed {
		d.metrics.ClaimConflict()
		log.DebugContext(ctx, "job already claimed by another sweep")
		return jobResult{outcome: outcomeSkipped}
	}

	msg := mailer.Message{
		To:          j.TargetEmail,
		Subject:     j.Subject,
		Text:        j.Message,
		Attachments: d.resolveAll(ctx, j, log),
	}

	// Outcome writes must land even if the trigger's context ends mid-send.
	writeCtx := context.WithoutCancel(ctx)

	sendStart := time.Now()
	res, sendErr := d.mailer.Send(ctx, msg)
	d.metrics.SendDuration(time.Since(sendStart))

	if sendErr != nil {
		errMsg := sendErr.Error()
		log.WarnContext(ctx, "send failed", slog.String("error", errMsg))
		if err := d.store.MarkFailed(writeCtx, j.ID, errMsg); err != nil {
			log.ErrorContext(ctx, "failed to record send failure", slog.String("error", err.Error()))
			return jobResult{outcome: outcomeFailed, err: fmt.Errorf("%s; record failure: %w", errMsg, err)}
		}
		return jobResult{outcome: outcomeFailed, err: sendErr}
	}

	if err := d.store.MarkSent(writeCtx, j.ID, now); err != nil {
		log.ErrorContext(ctx, "email sent but job state not recorded",
			slog.String("message_id", res.MessageID),
			slog.String("error", err.Error()),
		)
		return jobResult{outcome: outcomeFailed, err: fmt.Errorf("record sent: %w", err)}
	}

	log.InfoContext(ctx, "email sent",
		slog.String("message_id", res.MessageID),
		slog.Int("attachments", len(msg.Attachments)),
	)
	return jobResult{outcome: outcomeSent}
}

// resolveAll fetches every attachment of j, skipping the ones that fail.
func (d *Dispatcher) resolveAll(ctx context.Context, j *jobs.Job, log *slog.Logger) []mailer.Attachment {
	refs := attachment.Refs(j)
	if len(refs) == 0 {
		return nil
	}

	out := make([]mailer.Attachment, 0, len(refs))
	for _, ref := range refs {
		f, err := d.resolver.Resolve(ctx, ref)
		if err != nil {
			d.metrics.AttachmentUnresolved(reason(err))
			log.WarnContext(ctx, "attachment skipped",
				slog.String("path", ref.Path),
				slog.String("name", ref.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		out = append(out, mailer.Attachment{
			Filename:    f.Name,
			ContentType: f.ContentType,
			Content:     f.Content,
		})
	}
	return out
}

func reason(err error) string {
	switch {
	case errors.Is(err, attachment.ErrUnresolvable):
		return metrics.ReasonUnresolvable
	case errors.Is(err, attachment.ErrNotFound):
		return metrics.ReasonNotFound
	default:
		return metrics.ReasonFetchError
	}
}
