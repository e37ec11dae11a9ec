package jobs

import "errors"

var (
	// ErrNotFound is returned when no job matches the id and owner.
	ErrNotFound = errors.New("jobs: job not found")

	// ErrInvalidState is returned when a conditional transition finds the job
	// in a status the transition does not start from.
	ErrInvalidState = errors.New("jobs: job is not in the required state")

	ErrInvalidInput    = errors.New("jobs: invalid input")
	ErrInvalidTimezone = errors.New("jobs: unknown timezone")
	ErrQueryFailed     = errors.New("jobs: query failed")
)
