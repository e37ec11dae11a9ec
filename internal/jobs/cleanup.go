package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/portmail/portmail/pkg/storage"
)

// CleanupTaskName is the background task that removes a deleted job's files.
const CleanupTaskName = "attachments.cleanup"

const cleanupMaxAttempts = 5

// CleanupPayload lists the object keys to remove.
type CleanupPayload struct {
	Keys []string `json:"keys"`
}

// Remover deletes objects by key.
type Remover interface {
	Delete(ctx context.Context, key string) error
}

// AttachmentCleanup deletes attachment files after their job row is gone.
// Missing objects count as removed; other failures are returned so the task is retried.
type AttachmentCleanup struct {
	storage Remover
	logger  *slog.Logger
}

// NewAttachmentCleanup creates the cleanup task.
func NewAttachmentCleanup(s Remover, logger *slog.Logger) *AttachmentCleanup {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AttachmentCleanup{storage: s, logger: logger.With(slog.String("component", "attachments.cleanup"))}
}

func (c *AttachmentCleanup) Name() string { return CleanupTaskName }

func (c *AttachmentCleanup) Handle(ctx context.Context, p CleanupPayload) error {
	var errs []error
	for _, key := range p.Keys {
		err := c.storage.Delete(ctx, key)
		switch {
		case err == nil:
			c.logger.DebugContext(ctx, "attachment removed", slog.String("key", key))
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
			c.logger.WarnContext(ctx, "attachment already gone", slog.String("key", key), slog.String("error", err.Error()))
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
