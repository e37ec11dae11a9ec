package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/portmail/portmail/internal/templates"
	"github.com/portmail/portmail/pkg/job"
	"github.com/portmail/portmail/pkg/storage"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	DefaultTimezone  = "UTC"
)

// Action names accepted by Service.Apply.
const (
	ActionCancel = "cancel"
	ActionRetry  = "retry"
)

// Repository is the persistence surface the service needs.
type Repository interface {
	List(ctx context.Context, userID string, f ListFilter) ([]Job, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*Job, error)
	Create(ctx context.Context, j *Job) error
	AddAttachment(ctx context.Context, userID string, id uuid.UUID, a Attachment) (*Job, error)
	Cancel(ctx context.Context, userID string, id uuid.UUID) (*Job, error)
	Retry(ctx context.Context, userID string, id uuid.UUID) (*Job, error)
	Delete(ctx context.Context, userID string, id uuid.UUID, hook DeleteHook) error
}

// Enqueuer schedules background tasks inside an open transaction.
type Enqueuer interface {
	EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error
}

// CreateInput is the payload of a new scheduled job.
type CreateInput struct {
	ShipID        *uuid.UUID        `json:"ship_id"`
	ShipName      string            `json:"ship_name" validate:"required,max=200"`
	Port          string            `json:"port" validate:"max=200"`
	TargetEmail   string            `json:"target_email" validate:"required,email"`
	Subject       string            `json:"subject" validate:"required,max=998"`
	Message       string            `json:"message" validate:"required"`
	ScheduledTime time.Time         `json:"scheduled_time" validate:"required"`
	Timezone      string            `json:"timezone"`
	Attachments   []AttachmentInput `json:"attachments" validate:"omitempty,max=20,dive"`
}

// AttachmentInput references a file that is already in the object store.
type AttachmentInput struct {
	Path string `json:"path" validate:"required"`
	Name string `json:"name"`
	Size int64  `json:"size" validate:"gte=0"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "jobs: validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Service implements the user-facing job operations.
type Service struct {
	repo      Repository
	enqueuer  Enqueuer
	storage   storage.Storage
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
	maxUpload int64
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for validation.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxUploadSize bounds a single uploaded attachment.
func WithMaxUploadSize(n int64) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires the job operations. enqueuer may be nil, in which case
// deleted jobs leave their files in the object store.
func NewService(repo Repository, enqueuer Enqueuer, store storage.Storage, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		enqueuer:  enqueuer,
		storage:   store,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
		maxUpload: storage.DefaultMaxObjectSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusFilterAll lists every status, like an empty filter.
const StatusFilterAll = "all"

// List returns the user's jobs. An empty status or "all" lists every status.
func (s *Service) List(ctx context.Context, userID string, status string, limit int) ([]Job, error) {
	if status == StatusFilterAll {
		status = ""
	}
	st := Status(status)
	if status != "" && !st.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "unknown status"}}
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	list, err := s.repo.List(ctx, userID, ListFilter{Status: st, Limit: limit})
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Job{}
	}
	return list, nil
}

// Get returns one of the user's jobs.
func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	return s.repo.Get(ctx, userID, id)
}

// Create validates the input, substitutes the template placeholders and
// stores a pending job.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*Job, error) {
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	tz := strings.TrimSpace(in.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"timezone": ErrInvalidTimezone.Error()}}
	}

	atts := make([]Attachment, 0, len(in.Attachments))
	for i, a := range in.Attachments {
		key, err := storage.CleanKey(a.Path)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{
				fmt.Sprintf("attachments[%d].path", i): "invalid storage key",
			}}
		}
		if !storage.OwnedBy(key, userID) {
			return nil, &ValidationError{Fields: map[string]string{
				fmt.Sprintf("attachments[%d].path", i): "not owned by the caller",
			}}
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			name = storage.BaseName(key)
		}
		atts = append(atts, Attachment{Path: key, Name: name, Size: a.Size})
	}

	shipName := strings.TrimSpace(in.ShipName)
	j := &Job{
		ID:            uuid.New(),
		UserID:        userID,
		ShipID:        in.ShipID,
		ShipName:      shipName,
		TargetEmail:   strings.TrimSpace(in.TargetEmail),
		Subject:       templates.Render(in.Subject, shipName, in.Port),
		Message:       templates.Render(in.Message, shipName, in.Port),
		Attachments:   atts,
		ScheduledTime: in.ScheduledTime.UTC(),
		Timezone:      tz,
		Status:        StatusPending,
	}
	j.FilePath, j.FileName, j.FileSize = CompatColumns(atts)

	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "scheduled job created",
		slog.String("job_id", j.ID.String()),
		slog.Time("scheduled_time", j.ScheduledTime),
		slog.Int("attachments", len(atts)),
	)
	return j, nil
}

// Upload stores one file and appends it to a pending job. The object is
// removed again when the job cannot take it.
func (s *Service) Upload(ctx context.Context, userID string, id uuid.UUID, fh *multipart.FileHeader) (*Job, error) {
	if s.storage == nil {
		return nil, storage.ErrInvalidConfig
	}

	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusPending {
		return nil, fmt.Errorf("%w: job %s is %s", ErrInvalidState, id, current.Status)
	}

	info, err := storage.PutFile(ctx, s.storage, fh,
		storage.WithTenant(userID),
		storage.WithPrefix("attachments"),
		storage.WithValidation(storage.NotEmpty(), storage.MaxSize(s.maxUpload)),
	)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(fh.Filename)
	if name == "" {
		name = storage.BaseName(info.Key)
	}

	j, err := s.repo.AddAttachment(ctx, userID, id, Attachment{Path: info.Key, Name: name, Size: info.Size})
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), info.Key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to remove orphaned upload",
				slog.String("key", info.Key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, err
	}
	return j, nil
}

// Apply runs a cancel or retry action.
func (s *Service) Apply(ctx context.Context, userID string, id uuid.UUID, action string) (*Job, error) {
	switch action {
	case ActionCancel:
		return s.repo.Cancel(ctx, userID, id)
	case ActionRetry:
		return s.repo.Retry(ctx, userID, id)
	default:
		return nil, &ValidationError{Fields: map[string]string{"action": "must be cancel or retry"}}
	}
}

// Delete removes the job and schedules removal of its files in the same transaction.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	var hook DeleteHook
	if s.enqueuer != nil {
		hook = func(ctx context.Context, tx pgx.Tx, keys []string) error {
			return s.enqueuer.EnqueueTx(ctx, tx, CleanupTaskName, CleanupPayload{Keys: keys}, job.MaxAttempts(cleanupMaxAttempts))
		}
	}

	if err := s.repo.Delete(ctx, userID, id, hook); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "scheduled job deleted", slog.String("job_id", id.String()))
	return nil
}

func (s *Service) validateInput(in CreateInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Join(ErrInvalidInput, err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = validationMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

var jsonNames = map[string]string{
	"ShipName":      "ship_name",
	"Port":          "port",
	"TargetEmail":   "target_email",
	"Subject":       "subject",
	"Message":       "message",
	"ScheduledTime": "scheduled_time",
	"Attachments":   "attachments",
	"Path":          "path",
	"Size":          "size",
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	parts := strings.Split(ns, ".")
	for i, p := range parts {
		base, idx, _ := strings.Cut(p, "[")
		if n, ok := jsonNames[base]; ok {
			base = n
		}
		if idx != "" {
			base += "[" + idx
		}
		parts[i] = base
	}
	return strings.Join(parts, ".")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}
