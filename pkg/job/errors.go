package job

import "errors"

var (
	ErrPoolRequired    = errors.New("job: pool is required")
	ErrUnknownTask     = errors.New("job: unknown task")
	ErrInvalidPayload  = errors.New("job: invalid payload")
	ErrInvalidSchedule = errors.New("job: invalid schedule")
	ErrAlreadyStarted  = errors.New("job: manager already started")
	ErrNotRunning      = errors.New("job: manager not running")
)
