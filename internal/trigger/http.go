package trigger

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/portmail/portmail/internal/dispatch"
	"github.com/portmail/portmail/internal/metrics"
)

const (
	MessageNoPending = "No pending jobs to process"
	MessageCompleted = "Cron job completed"
)

// HTTPConfig controls authentication of the HTTP trigger.
type HTTPConfig struct {
	// Secret is compared with the bearer token of each request whenever it
	// is set, unless Development is true.
	Secret string
	// Development accepts every request.
	Development bool
	// Production makes a missing Secret a configuration error.
	Production bool
}

// HTTPHandler runs a sweep per request and answers with a JSON summary.
type HTTPHandler struct {
	sweeper Sweeper
	cfg     HTTPConfig
	now     Clock
	logger  *slog.Logger
}

// HTTPOption configures an HTTPHandler.
type HTTPOption func(*HTTPHandler)

// WithHTTPClock overrides the sweep instant source.
func WithHTTPClock(c Clock) HTTPOption {
	return func(h *HTTPHandler) {
		if c != nil {
			h.now = c
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTPHandler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPHandler creates the handler behind /cron/send-mails.
func NewHTTPHandler(s Sweeper, cfg HTTPConfig, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{
		sweeper: s,
		cfg:     cfg,
		now:     utcNow,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(slog.String("component", "trigger.http"))
	return h
}

type completedResponse struct {
	Message   string              `json:"message"`
	Processed int                 `json:"processed"`
	Sent      int                 `json:"sent"`
	Failed    int                 `json:"failed"`
	Errors    []dispatch.JobError `json:"errors"`
}

type noPendingResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch {
	case h.cfg.Development:
	case h.cfg.Secret != "":
		if !validBearer(r.Header.Get("Authorization"), h.cfg.Secret) {
			h.logger.WarnContext(ctx, "unauthorized sweep request", slog.String("remote_addr", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Unauthorized"})
			return
		}
	case h.cfg.Production:
		h.logger.ErrorContext(ctx, "cron secret is not configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Error:   "Configuration Error",
			Details: "CRON_SECRET is not set",
		})
		return
	}

	report, err := h.sweeper.RunSweepFrom(ctx, h.now(), metrics.TriggerHTTP)
	if err != nil {
		resp := errorResponse{Error: "Sweep failed", Details: err.Error()}
		switch {
		case errors.Is(err, dispatch.ErrNotConfigured):
			resp.Error = "Configuration Error"
		case errors.Is(err, dispatch.ErrSelectFailed):
			resp.Error = "Failed to fetch pending jobs"
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	if report.Processed == 0 && len(report.Errors) == 0 {
		writeJSON(w, http.StatusOK, noPendingResponse{Message: MessageNoPending})
		return
	}

	writeJSON(w, http.StatusOK, completedResponse{
		Message:   MessageCompleted,
		Processed: report.Processed,
		Sent:      report.Sent,
		Failed:    report.Failed,
		Errors:    report.Errors,
	})
}

// validBearer compares the bearer token in header with secret in constant time.
func validBearer(header, secret string) bool {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
