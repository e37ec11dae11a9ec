package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg, nil)

	s.SweepStarted(TriggerHTTP)
	s.SweepStarted(TriggerSchedule)
	s.SweepCompleted(TriggerHTTP, 20*time.Millisecond, 3, 2, 1, nil)
	s.SweepCompleted(TriggerSchedule, time.Millisecond, 0, 0, 0, errors.New("select failed"))
	s.ClaimConflict()
	s.JobOutcome(OutcomeSent)
	s.JobOutcome(OutcomeSent)
	s.JobOutcome(OutcomeFailed)
	s.SendDuration(150 * time.Millisecond)
	s.AttachmentUnresolved(ReasonNotFound)

	assert.InDelta(t, 1, testutil.ToFloat64(s.sweepsTotal.WithLabelValues(TriggerHTTP)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.sweepErrorsTotal.WithLabelValues(TriggerSchedule)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(s.sweepErrorsTotal.WithLabelValues(TriggerHTTP)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(s.jobsClaimed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.claimConflicts), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(s.jobOutcomes.WithLabelValues(OutcomeSent)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.attachmentErrors.WithLabelValues(ReasonNotFound)), 0)
	assert.Positive(t, testutil.ToFloat64(s.lastSweep))
}

func TestPrometheusSink_DoubleRegistrationDoesNotPanic(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_ = NewPrometheusSink(reg, nil)
	s := NewPrometheusSink(reg, nil)

	assert.NotPanics(t, func() { s.JobOutcome(OutcomeSent) })
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s := NewPrometheusSink(reg, nil)
	s.SweepStarted(TriggerDev)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portmail_sweeps_total{trigger="dev"} 1`)
}

func TestNoopSink(t *testing.T) {
	t.Parallel()

	var s Sink = NewNoopSink()
	assert.NotPanics(t, func() {
		s.SweepStarted(TriggerCLI)
		s.SweepCompleted(TriggerCLI, time.Second, 1, 1, 0, nil)
		s.ClaimConflict()
		s.JobOutcome(OutcomeFailed)
		s.SendDuration(time.Second)
		s.AttachmentUnresolved(ReasonUnresolvable)
	})
}
