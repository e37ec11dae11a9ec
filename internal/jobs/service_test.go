package jobs

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/portmail/portmail/pkg/job"
	"github.com/portmail/portmail/pkg/storage"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) List(ctx context.Context, userID string, f ListFilter) ([]Job, error) {
	args := m.Called(ctx, userID, f)
	list, _ := args.Get(0).([]Job)
	return list, args.Error(1)
}

func (m *MockRepository) Get(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	args := m.Called(ctx, userID, id)
	j, _ := args.Get(0).(*Job)
	return j, args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, j *Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *MockRepository) AddAttachment(ctx context.Context, userID string, id uuid.UUID, a Attachment) (*Job, error) {
	args := m.Called(ctx, userID, id, a)
	j, _ := args.Get(0).(*Job)
	return j, args.Error(1)
}

func (m *MockRepository) Cancel(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	args := m.Called(ctx, userID, id)
	j, _ := args.Get(0).(*Job)
	return j, args.Error(1)
}

func (m *MockRepository) Retry(ctx context.Context, userID string, id uuid.UUID) (*Job, error) {
	args := m.Called(ctx, userID, id)
	j, _ := args.Get(0).(*Job)
	return j, args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, userID string, id uuid.UUID, hook DeleteHook) error {
	args := m.Called(ctx, userID, id, hook)
	return args.Error(0)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueTx(ctx context.Context, tx pgx.Tx, name string, payload any, opts ...job.EnqueueOption) error {
	return m.Called(ctx, tx, name, payload).Error(0)
}

func validInput() CreateInput {
	return CreateInput{
		ShipName:      "MV Aurora",
		Port:          "Aliaga",
		TargetEmail:   "master@aurora.example",
		Subject:       "{ship_name} // PRE ARRIVAL // {port}",
		Message:       "Dear Master,\n{ship_name} is expected at {port}.",
		ScheduledTime: time.Date(2026, 5, 1, 6, 0, 0, 0, time.FixedZone("TRT", 3*3600)),
		Attachments: []AttachmentInput{
			{Path: "u1/attachments/crew.pdf", Name: "Crew List.pdf", Size: 100},
			{Path: "u1/attachments/sp1.pdf", Size: 50},
		},
	}
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	repo := &MockRepository{}
	repo.On("Create", mock.Anything, mock.AnythingOfType("*jobs.Job")).Return(nil)
	svc := NewService(repo, nil, nil)

	j, err := svc.Create(context.Background(), "u1", validInput())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, j.ID)
	assert.Equal(t, "u1", j.UserID)
	assert.Equal(t, StatusPending, j.Status)
	assert.Equal(t, "MV Aurora // PRE ARRIVAL // Aliaga", j.Subject)
	assert.Equal(t, "Dear Master,\nMV Aurora is expected at Aliaga.", j.Message)
	assert.Equal(t, DefaultTimezone, j.Timezone)
	assert.Equal(t, time.UTC, j.ScheduledTime.Location())
	assert.Equal(t, time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC), j.ScheduledTime)

	require.Len(t, j.Attachments, 2)
	assert.Equal(t, "sp1.pdf", j.Attachments[1].Name)
	assert.Equal(t, "u1/attachments/crew.pdf", j.FilePath)
	assert.Equal(t, "Crew List.pdf,sp1.pdf", j.FileName)
	assert.Equal(t, int64(150), j.FileSize)
	repo.AssertExpectations(t)
}

func TestService_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*CreateInput)
		field string
	}{
		{"missing ship", func(in *CreateInput) { in.ShipName = "" }, "ship_name"},
		{"bad email", func(in *CreateInput) { in.TargetEmail = "not-an-email" }, "target_email"},
		{"empty subject", func(in *CreateInput) { in.Subject = "" }, "subject"},
		{"empty message", func(in *CreateInput) { in.Message = "" }, "message"},
		{"zero time", func(in *CreateInput) { in.ScheduledTime = time.Time{} }, "scheduled_time"},
		{"unknown timezone", func(in *CreateInput) { in.Timezone = "Mars/Olympus" }, "timezone"},
		{"attachment without path", func(in *CreateInput) { in.Attachments[0].Path = "" }, "attachments[0].path"},
		{"traversal path", func(in *CreateInput) { in.Attachments[1].Path = "../etc/passwd" }, "attachments[1].path"},
		{"foreign user's object", func(in *CreateInput) { in.Attachments[1].Path = "victim-user/attachments/secret.pdf" }, "attachments[1].path"},
		{"prefix of another user", func(in *CreateInput) { in.Attachments[0].Path = "u10/attachments/crew.pdf" }, "attachments[0].path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &MockRepository{}
			svc := NewService(repo, nil, nil)
			in := validInput()
			tt.edit(&in)

			_, err := svc.Create(context.Background(), "u1", in)
			require.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestService_List_ClampsLimit(t *testing.T) {
	t.Parallel()

	repo := &MockRepository{}
	repo.On("List", mock.Anything, "u1", ListFilter{Limit: DefaultListLimit}).Return(nil, nil).Twice()
	repo.On("List", mock.Anything, "u1", ListFilter{Status: StatusFailed, Limit: MaxListLimit}).Return([]Job{{}}, nil).Once()
	svc := NewService(repo, nil, nil)

	list, err := svc.List(context.Background(), "u1", "", 0)
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	list, err = svc.List(context.Background(), "u1", "failed", 5000)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = svc.List(context.Background(), "u1", StatusFilterAll, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.List(context.Background(), "u1", "queued", 10)
	require.ErrorIs(t, err, ErrInvalidInput)
	repo.AssertExpectations(t)
}

func TestService_Apply(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repo := &MockRepository{}
	repo.On("Cancel", mock.Anything, "u1", id).Return(&Job{ID: id, Status: StatusCancelled}, nil)
	repo.On("Retry", mock.Anything, "u1", id).Return(nil, ErrInvalidState)
	svc := NewService(repo, nil, nil)

	j, err := svc.Apply(context.Background(), "u1", id, ActionCancel)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, j.Status)

	_, err = svc.Apply(context.Background(), "u1", id, ActionRetry)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Apply(context.Background(), "u1", id, "resend")
	require.ErrorIs(t, err, ErrInvalidInput)
	repo.AssertExpectations(t)
}

func TestService_Delete_EnqueuesCleanup(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	keys := []string{"u1/attachments/a.pdf", "u1/attachments/b.pdf"}

	enq := &MockEnqueuer{}
	enq.On("EnqueueTx", mock.Anything, mock.Anything, CleanupTaskName, CleanupPayload{Keys: keys}).Return(nil)

	repo := &MockRepository{}
	repo.On("Delete", mock.Anything, "u1", id, mock.AnythingOfType("jobs.DeleteHook")).
		Run(func(args mock.Arguments) {
			hook := args.Get(3).(DeleteHook)
			require.NoError(t, hook(context.Background(), nil, keys))
		}).
		Return(nil)

	svc := NewService(repo, enq, nil)
	require.NoError(t, svc.Delete(context.Background(), "u1", id))

	repo.AssertExpectations(t)
	enq.AssertExpectations(t)
}

func TestService_Delete_NotFound(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	repo := &MockRepository{}
	repo.On("Delete", mock.Anything, "u1", id, mock.Anything).Return(ErrNotFound)

	svc := NewService(repo, &MockEnqueuer{}, nil)
	require.ErrorIs(t, svc.Delete(context.Background(), "u1", id), ErrNotFound)
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["file"][0]
}

func TestService_Upload(t *testing.T) {
	t.Parallel()

	t.Run("stores file and appends it", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		store := storage.NewMemory()
		repo := &MockRepository{}
		repo.On("Get", mock.Anything, "u1", id).Return(&Job{ID: id, Status: StatusPending}, nil)
		repo.On("AddAttachment", mock.Anything, "u1", id, mock.MatchedBy(func(a Attachment) bool {
			return a.Name == "crew.pdf" && a.Size == 7
		})).Return(&Job{ID: id, Status: StatusPending, Attachments: []Attachment{{Name: "crew.pdf"}}}, nil)

		svc := NewService(repo, nil, store)
		j, err := svc.Upload(context.Background(), "u1", id, fileHeader(t, "crew.pdf", []byte("%PDF-1.")))
		require.NoError(t, err)
		assert.Len(t, j.Attachments, 1)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("rejects job that is not pending", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		store := storage.NewMemory()
		repo := &MockRepository{}
		repo.On("Get", mock.Anything, "u1", id).Return(&Job{ID: id, Status: StatusSent}, nil)

		svc := NewService(repo, nil, store)
		_, err := svc.Upload(context.Background(), "u1", id, fileHeader(t, "crew.pdf", []byte("data")))
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Zero(t, store.Len())
	})

	t.Run("removes object when append fails", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		store := storage.NewMemory()
		repo := &MockRepository{}
		repo.On("Get", mock.Anything, "u1", id).Return(&Job{ID: id, Status: StatusPending}, nil)
		repo.On("AddAttachment", mock.Anything, "u1", id, mock.Anything).Return(nil, errors.New("boom"))

		svc := NewService(repo, nil, store)
		_, err := svc.Upload(context.Background(), "u1", id, fileHeader(t, "crew.pdf", []byte("data")))
		require.Error(t, err)
		assert.Zero(t, store.Len())
	})
}
