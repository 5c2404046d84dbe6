package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/zwave-core/internal/zwave"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeUnknownCommand = "unknown_command"
	ErrCodeUnavailable    = "driver_unavailable"
	ErrCodeDriverError    = "driver_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeCoreError maps an event core error onto a status and code.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zwave.ErrUnknownCommand):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownCommand, err.Error())
	case errors.Is(err, zwave.ErrAlreadyInProgress),
		errors.Is(err, zwave.ErrSceneExists),
		errors.Is(err, zwave.ErrSceneLimit):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, zwave.ErrDriverUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	default:
		writeError(w, http.StatusBadGateway, ErrCodeDriverError, err.Error())
	}
}
