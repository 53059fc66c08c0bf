package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Transient
// rejections stay in the 4xx range so polling clients render them as soft
// inline messages; only unexpected storage faults become 500s.
func writeDomainError(w http.ResponseWriter, err error) {
	var invalid *ValidationError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, ErrUnknownSession),
		errors.Is(err, ErrUnknownPlayer),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrSaveNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidPhase),
		errors.Is(err, ErrAlreadyBuzzed),
		errors.Is(err, ErrBuzzLocked),
		errors.Is(err, ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrStorageBusy):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
