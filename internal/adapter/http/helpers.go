package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/sjson"

	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/logger"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readBody reads the raw request body with a size limit. On failure it
// writes the error response and returns false.
func readBody(w http.ResponseWriter, r *http.Request, bodyLimit int64) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, bodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, r, http.StatusBadRequest, "failed to read request body")
		}
		return nil, false
	}
	return body, true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// writeJSON marshals data and writes it as an envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		body = []byte(`{"success":false,"error":"internal server error"}`)
		status = http.StatusInternalServerError
	}
	writeEnvelope(w, status, body)
}

// writeEnvelope stamps the timestamp field on an encoded JSON object and
// writes it.
func writeEnvelope(w http.ResponseWriter, status int, body []byte) {
	if stamped, err := sjson.SetBytes(body, "timestamp", timestamp()); err == nil {
		body = stamped
	} else {
		slog.Error("failed to stamp response timestamp", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, errorResponse{
		Error:     message,
		RequestID: logger.RequestID(r.Context()),
	})
}

// writeDomainError maps a classified error onto its HTTP status. Unexpected
// errors are logged and answered with their message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	msg := err.Error()
	if errors.As(err, &de) {
		msg = de.Message
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidRequest, domain.KindUnknownAction:
		writeError(w, r, http.StatusBadRequest, msg)
	case domain.KindSignatureInvalid:
		writeError(w, r, http.StatusUnauthorized, msg)
	case domain.KindUpstreamFailure:
		slog.ErrorContext(r.Context(), "upstream failure", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, msg)
	case domain.KindPersistenceSoftFailure, domain.KindInternal:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}
