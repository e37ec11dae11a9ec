package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "portmail"

// PrometheusSink implements Sink with Prometheus collectors.
// Registration errors are logged and never propagated.
type PrometheusSink struct {
	sweepsTotal      *prometheus.CounterVec
	sweepErrorsTotal *prometheus.CounterVec
	sweepDuration    *prometheus.HistogramVec
	jobsClaimed      prometheus.Counter
	claimConflicts   prometheus.Counter
	jobOutcomes      *prometheus.CounterVec
	sendDuration     prometheus.Histogram
	attachmentErrors *prometheus.CounterVec
	lastSweep        prometheus.Gauge

	logger *slog.Logger
}

// NewPrometheusSink creates the collectors and registers them on reg.
func NewPrometheusSink(reg prometheus.Registerer, logger *slog.Logger) *PrometheusSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &PrometheusSink{logger: logger}

	s.sweepsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Total number of dispatcher sweeps.",
	}, []string{"trigger"})
	s.sweepErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_errors_total",
		Help:      "Total number of sweeps aborted by a configuration or selection error.",
	}, []string{"trigger"})
	s.sweepDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Wall-clock duration of one sweep in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"trigger"})
	s.jobsClaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_claimed_total",
		Help:      "Total number of jobs claimed by a sweep.",
	})
	s.claimConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claim_conflicts_total",
		Help:      "Total number of selected jobs already claimed by another sweep.",
	})
	s.jobOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_outcomes_total",
		Help:      "Total number of claimed jobs by final outcome.",
	}, []string{"outcome"})
	s.sendDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "send_duration_seconds",
		Help:      "Mail sender latency in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	s.attachmentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attachment_resolve_failures_total",
		Help:      "Total number of attachments skipped because they could not be resolved.",
	}, []string{"reason"})
	s.lastSweep = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_sweep_timestamp_seconds",
		Help:      "Unix time of the last completed sweep.",
	})

	s.register(reg, s.sweepsTotal, "sweeps_total")
	s.register(reg, s.sweepErrorsTotal, "sweep_errors_total")
	s.register(reg, s.sweepDuration, "sweep_duration_seconds")
	s.register(reg, s.jobsClaimed, "jobs_claimed_total")
	s.register(reg, s.claimConflicts, "claim_conflicts_total")
	s.register(reg, s.jobOutcomes, "job_outcomes_total")
	s.register(reg, s.sendDuration, "send_duration_seconds")
	s.register(reg, s.attachmentErrors, "attachment_resolve_failures_total")
	s.register(reg, s.lastSweep, "last_sweep_timestamp_seconds")

	return s
}

func (s *PrometheusSink) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		s.logger.Warn("metrics: failed to register collector",
			slog.String("collector", name),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PrometheusSink) SweepStarted(trigger string) {
	s.sweepsTotal.WithLabelValues(trigger).Inc()
}

func (s *PrometheusSink) SweepCompleted(trigger string, duration time.Duration, processed, _, _ int, err error) {
	s.sweepDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	s.jobsClaimed.Add(float64(processed))
	if err != nil {
		s.sweepErrorsTotal.WithLabelValues(trigger).Inc()
		return
	}
	s.lastSweep.SetToCurrentTime()
}

func (s *PrometheusSink) ClaimConflict() {
	s.claimConflicts.Inc()
}

func (s *PrometheusSink) JobOutcome(outcome string) {
	s.jobOutcomes.WithLabelValues(outcome).Inc()
}

func (s *PrometheusSink) SendDuration(duration time.Duration) {
	s.sendDuration.Observe(duration.Seconds())
}

func (s *PrometheusSink) AttachmentUnresolved(reason string) {
	s.attachmentErrors.WithLabelValues(reason).Inc()
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ Sink = (*PrometheusSink)(nil)
