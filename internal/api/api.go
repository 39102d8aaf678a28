package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"codeberg.org/kessl/xptrack/internal/errors"
	"codeberg.org/kessl/xptrack/internal/logger"
)

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decode[T any](body io.Reader) (T, error) {
	var payload T

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return payload, errors.New().Wrap(errors.ErrInvalidArgument, err)
	}

	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain error codes onto HTTP statuses. Absence is
// handled by the callers; only real failures arrive here.
func writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrResourceNotFound:
		status = http.StatusNotFound
	case errors.ErrInvalidArgument:
		status = http.StatusBadRequest
	}

	writeJSON(w, status, errorResponse{
		Error:   string(code),
		Message: err.Error(),
	})
}
