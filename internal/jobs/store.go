package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/portmail/portmail/pkg/db"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	db.Beginner
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DeleteHook runs inside the delete transaction with the storage keys the
// deleted job referenced. Returning an error rolls the delete back.
type DeleteHook func(ctx context.Context, tx pgx.Tx, keys []string) error

// ListFilter narrows a user's job listing.
type ListFilter struct {
	Status Status
	Limit  int
}

// PostgresStore persists scheduled jobs in PostgreSQL.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store on top of a pool.
func NewPostgresStore(pool DB) *PostgresStore {
	return &PostgresStore{db: pool}
}

const jobColumns = `id, user_id, ship_id, ship_name, target_email, subject, message,
	file_path, file_name, file_size, scheduled_time, timezone, status,
	sent_at, error_log, retry_count, created_at, updated_at`

// ListDue returns up to limit pending jobs whose scheduled time is not after
// now, earliest first, with their attachment lists loaded.
func (s *PostgresStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+jobColumns+`
FROM scheduled_jobs
WHERE status = 'pending' AND scheduled_time <= $1
ORDER BY scheduled_time ASC, id ASC
LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	list, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	if err := loadAttachments(ctx, s.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Claim moves a job from pending to processing. It reports false when the job
// is no longer pending, which means another sweep already owns it.
func (s *PostgresStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE scheduled_jobs
SET status = 'processing', updated_at = now()
WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, errors.Join(ErrQueryFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkSent records a successful delivery of a processing job.
func (s *PostgresStore) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := s.db.Exec(ctx, `
UPDATE scheduled_jobs
SET status = 'sent', sent_at = $2, updated_at = now()
WHERE id = $1 AND status = 'processing'`, id, at.UTC())
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: mark sent %s", ErrInvalidState, id)
	}
	return nil
}

// MarkFailed records a failed delivery of a processing job and bumps its retry counter.
func (s *PostgresStore) MarkFailed(ctx context.Context, id uuid.UUID, msg string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE scheduled_jobs
SET status = 'failed', error_log = $2, retry_count = retry_count + 1, updated_at = now()
WHERE id = $1 AND status = 'processing'`, id, msg)
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: mark failed %s", ErrInvalidState, id)
	}
	return nil
}

// List returns a user's jobs, latest scheduled time first.
func (s *PostgresStore) List(ctx context.Context, userID string, f ListFilter) ([]Job, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+jobColumns+`
FROM scheduled_jobs
WHERE user_id = $1 AND ($2 = '' OR status = $2)
ORDER BY scheduled_time DESC
LIMIT $3`, userID, string(f.Status), f.Limit)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	list, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	if err := loadAttachments(ctx, s.db, list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one job owned by userID.
func (s *PostgresStore) Get(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	return getJob(ctx, s.db, userID, id)
}

// Create inserts a job and its attachment list in one transaction.
func (s *PostgresStore) Create(ctx context.Context, j *Job) error {
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
INSERT INTO scheduled_jobs (
	id, user_id, ship_id, ship_name, target_email, subject, message,
	file_path, file_name, file_size, scheduled_time, timezone, status, retry_count
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 0)
RETURNING created_at, updated_at`,
			j.ID, j.UserID, j.ShipID, j.ShipName, j.TargetEmail, j.Subject, j.Message,
			j.FilePath, j.FileName, j.FileSize, j.ScheduledTime.UTC(), j.Timezone, string(j.Status),
		)
		if err := row.Scan(&j.CreatedAt, &j.UpdatedAt); err != nil {
			return errors.Join(ErrQueryFailed, err)
		}

		for i, a := range j.Attachments {
			if _, err := tx.Exec(ctx, `
INSERT INTO scheduled_job_attachments (job_id, position, path, display_name, size)
VALUES ($1, $2, $3, $4, $5)`, j.ID, i, a.Path, a.Name, a.Size); err != nil {
				return errors.Join(ErrQueryFailed, err)
			}
		}
		return nil
	})
}

// AddAttachment appends a file to a pending job and refreshes the
// single-file columns.
func (s *PostgresStore) AddAttachment(ctx context.Context, userID string, id uuid.UUID, a Attachment) (*Job, error) {
	var out *Job
	err := db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `
SELECT id FROM scheduled_jobs
WHERE id = $1 AND user_id = $2 AND status = 'pending'
FOR UPDATE`, id, userID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return explainMiss(ctx, tx, userID, id)
		}
		if err != nil {
			return errors.Join(ErrQueryFailed, err)
		}

		if _, err := tx.Exec(ctx, `
INSERT INTO scheduled_job_attachments (job_id, position, path, display_name, size)
SELECT $1, COALESCE(MAX(position) + 1, 0), $2, $3, $4
FROM scheduled_job_attachments WHERE job_id = $1`, id, a.Path, a.Name, a.Size); err != nil {
			return errors.Join(ErrQueryFailed, err)
		}

		if _, err := tx.Exec(ctx, `
UPDATE scheduled_jobs j SET
	file_path = COALESCE((SELECT path FROM scheduled_job_attachments WHERE job_id = j.id ORDER BY position LIMIT 1), ''),
	file_name = COALESCE((SELECT string_agg(replace(display_name, ',', ' '), ',' ORDER BY position) FROM scheduled_job_attachments WHERE job_id = j.id), ''),
	file_size = COALESCE((SELECT SUM(size) FROM scheduled_job_attachments WHERE job_id = j.id), 0),
	updated_at = now()
WHERE j.id = $1`, id); err != nil {
			return errors.Join(ErrQueryFailed, err)
		}

		out, err = getJob(ctx, tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel moves a pending job to cancelled.
func (s *PostgresStore) Cancel(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	return s.transition(ctx, userID, id, `
UPDATE scheduled_jobs
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = 'pending'`)
}

// Retry moves a failed job back to pending and clears its error and sent time.
// The retry counter is kept.
func (s *PostgresStore) Retry(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	return s.transition(ctx, userID, id, `
UPDATE scheduled_jobs
SET status = 'pending', error_log = NULL, sent_at = NULL, updated_at = now()
WHERE id = $1 AND user_id = $2 AND status = 'failed'`)
}

func (s *PostgresStore) transition(ctx context.Context, userID string, id uuid.UUID, query string) (*Job, error) {
	tag, err := s.db.Exec(ctx, query, id, userID)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, explainMiss(ctx, s.db, userID, id)
	}
	return getJob(ctx, s.db, userID, id)
}

// Delete removes a job that is not being processed. hook, when set, runs in
// the same transaction with the job's storage keys.
func (s *PostgresStore) Delete(ctx context.Context, userID string, id uuid.UUID, hook DeleteHook) error {
	return db.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		j, err := getJob(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
DELETE FROM scheduled_jobs
WHERE id = $1 AND user_id = $2 AND status <> 'processing'`, id, userID)
		if err != nil {
			return errors.Join(ErrQueryFailed, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: job %s is processing", ErrInvalidState, id)
		}

		if hook == nil {
			return nil
		}
		if keys := j.StorageKeys(); len(keys) > 0 {
			return hook(ctx, tx, keys)
		}
		return nil
	})
}

// explainMiss tells a missing job apart from one in the wrong state.
func explainMiss(ctx context.Context, q querier, userID string, id uuid.UUID) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM scheduled_jobs WHERE id = $1 AND user_id = $2`, id, userID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return fmt.Errorf("%w: job %s is %s", ErrInvalidState, id, status)
}

func getJob(ctx context.Context, q querier, userID string, id uuid.UUID) (*Job, error) {
	row := q.QueryRow(ctx, `SELECT `+jobColumns+` FROM scheduled_jobs WHERE id = $1 AND user_id = $2`, id, userID)

	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}

	list := []Job{*j}
	if err := loadAttachments(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func scanJob(row pgx.Row) (*Job, error) {
	var (
		j      Job
		status string
	)
	err := row.Scan(
		&j.ID, &j.UserID, &j.ShipID, &j.ShipName, &j.TargetEmail, &j.Subject, &j.Message,
		&j.FilePath, &j.FileName, &j.FileSize, &j.ScheduledTime, &j.Timezone, &status,
		&j.SentAt, &j.ErrorLog, &j.RetryCount, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.Status = Status(status)
	j.ScheduledTime = j.ScheduledTime.UTC()
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]Job, error) {
	defer rows.Close()

	var list []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errors.Join(ErrQueryFailed, err)
		}
		list = append(list, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return list, nil
}

// loadAttachments fills the ordered attachment list of every job in list.
func loadAttachments(ctx context.Context, q querier, list []Job) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[uuid.UUID]int, len(list))
	for i := range list {
		ids[i] = list[i].ID.String()
		index[list[i].ID] = i
	}

	rows, err := q.Query(ctx, `
SELECT job_id, path, display_name, size
FROM scheduled_job_attachments
WHERE job_id = ANY($1::uuid[])
ORDER BY job_id, position`, ids)
	if err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jobID uuid.UUID
			a     Attachment
		)
		if err := rows.Scan(&jobID, &a.Path, &a.Name, &a.Size); err != nil {
			return errors.Join(ErrQueryFailed, err)
		}
		if i, ok := index[jobID]; ok {
			list[i].Attachments = append(list[i].Attachments, a)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Join(ErrQueryFailed, err)
	}
	return nil
}
