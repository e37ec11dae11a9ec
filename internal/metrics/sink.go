// Package metrics records dispatcher activity.
package metrics

import "time"

// Sink receives dispatcher measurements.
// Methods are fire-and-forget: implementations must not block or return errors.
type Sink interface {
	SweepStarted(trigger string)
	SweepCompleted(trigger string, duration time.Duration, processed, sent, failed int, err error)
	ClaimConflict()
	JobOutcome(outcome string)
	SendDuration(duration time.Duration)
	AttachmentUnresolved(reason string)
}

// Job outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Attachment resolution failure reasons.
const (
	ReasonUnresolvable = "unresolvable"
	ReasonNotFound     = "not_found"
	ReasonFetchError   = "fetch_error"
)

// Trigger names, used as a label on sweep metrics.
const (
	TriggerHTTP     = "http"
	TriggerSchedule = "schedule"
	TriggerDev      = "dev"
	TriggerCLI      = "cli"
	// TriggerDirect labels sweeps started by RunSweep without a named trigger.
	TriggerDirect   = "direct"
)
