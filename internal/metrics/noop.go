package metrics

import "time"

// NoopSink is used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (NoopSink) SweepStarted(string)                                          {}
func (NoopSink) SweepCompleted(string, time.Duration, int, int, int, error) {}
func (NoopSink) ClaimConflict()                                               {}
func (NoopSink) JobOutcome(string)                                            {}
func (NoopSink) SendDuration(time.Duration)                                   {}
func (NoopSink) AttachmentUnresolved(string)                                  {}
