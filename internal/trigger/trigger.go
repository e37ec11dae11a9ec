// Package trigger adapts the ways a sweep can be started (HTTP call, river
// periodic job, development ticker) to a single Sweeper.
package trigger

import (
	"context"
	"time"

	"github.com/portmail/portmail/internal/dispatch"
)

// Sweeper runs one sweep. *dispatch.Dispatcher implements it.
type Sweeper interface {
	RunSweepFrom(ctx context.Context, now time.Time, trigger string) (dispatch.Report, error)
}

// Clock returns the sweep instant.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
