package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/portmail/portmail/internal/jobs"
)

// uploadFormField is the multipart field carrying the attachment.
const uploadFormField = "file"

// multipartMemory is the part of an upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// JobService is the job management surface used by the handlers.
type JobService interface {
	List(ctx context.Context, userID, status string, limit int) ([]jobs.Job, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*jobs.Job, error)
	Create(ctx context.Context, userID string, in jobs.CreateInput) (*jobs.Job, error)
	Upload(ctx context.Context, userID string, id uuid.UUID, fh *multipart.FileHeader) (*jobs.Job, error)
	Apply(ctx context.Context, userID string, id uuid.UUID, action string) (*jobs.Job, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
}

type jobHandler struct {
	svc       JobService
	maxUpload int64
	logger    *slog.Logger
}

type listResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

type actionRequest struct {
	Action string `json:"action"`
}

func (h *jobHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			renderError(w, r, h.logger, ErrBadRequest("limit must be an integer"))
			return
		}
		limit = n
	}

	list, err := h.svc.List(r.Context(), UserID(r.Context()), q.Get("status"), limit)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Jobs: list})
}

func (h *jobHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, err := h.svc.Get(r.Context(), UserID(r.Context()), id)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *jobHandler) create(w http.ResponseWriter, r *http.Request) {
	var in jobs.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	job, err := h.svc.Create(r.Context(), UserID(r.Context()), in)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (h *jobHandler) upload(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			renderError(w, r, h.logger, ErrTooLarge("file is too large", WithCause(err)))
			return
		}
		renderError(w, r, h.logger, ErrBadRequest("expected multipart form data", WithCause(err)))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[uploadFormField]
	if len(files) == 0 {
		renderError(w, r, h.logger, ErrBadRequest(`missing "file" form field`))
		return
	}

	job, err := h.svc.Upload(r.Context(), UserID(r.Context()), id, files[0])
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *jobHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var req actionRequest
	if err := decodeJSON(r, &req); err != nil {
		renderError(w, r, h.logger, err)
		return
	}

	job, err := h.svc.Apply(r.Context(), UserID(r.Context()), id, req.Action)
	if err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *jobHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), UserID(r.Context()), id); err != nil {
		renderError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// jobID parses the {id} path parameter, rendering 404 when it is not a UUID.
func (h *jobHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, h.logger, ErrNotFound("job not found"))
		return uuid.Nil, false
	}
	return id, true
}
