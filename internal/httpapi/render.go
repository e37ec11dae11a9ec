package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxJSONBody caps request bodies decoded as JSON.
const maxJSONBody = 1 << 20

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// renderError writes err as a JSON error body. Server errors are logged
// with their cause.
func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	httpErr := asHTTPError(err)

	if httpErr.Status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}

	writeJSON(w, httpErr.Status, errorBody{
		Error:     httpErr.Message,
		Code:      httpErr.Code,
		Details:   httpErr.Details,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// decodeJSON decodes a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrBadRequest("request body is empty")
		}
		return ErrBadRequest(fmt.Sprintf("malformed JSON: %v", err), WithCause(err))
	}
	if dec.More() {
		return ErrBadRequest("request body must contain a single JSON object")
	}
	return nil
}
