package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Error codes reported in ErrorResponse.Code
const (
	CodePathNotFound      = "PATH_NOT_FOUND"
	CodeJobNotFound       = "JOB_NOT_FOUND"
	CodeJobRunning        = "JOB_RUNNING"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeEmptyQuery        = "EMPTY_QUERY"
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInternal          = "INTERNAL_ERROR"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MapErrorToStatus maps domain errors to an HTTP status and error code
func MapErrorToStatus(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrPathNotFound):
		return http.StatusBadRequest, CodePathNotFound
	case errors.Is(err, types.ErrEmptyQuery):
		return http.StatusBadRequest, CodeEmptyQuery
	case errors.Is(err, types.ErrJobNotFound):
		return http.StatusNotFound, CodeJobNotFound
	case errors.Is(err, types.ErrJobRunning):
		return http.StatusConflict, CodeJobRunning
	case errors.Is(err, types.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// WriteError writes err with an explicit status
func WriteError(w http.ResponseWriter, err error, status int) {
	_, code := MapErrorToStatus(err)
	if status == http.StatusBadRequest && code == CodeInternal {
		code = CodeInvalidRequest
	}
	WriteJSON(w, ErrorResponse{Error: err.Error(), Code: code}, status)
}

// WriteDomainError writes err with the status MapErrorToStatus assigns
func WriteDomainError(w http.ResponseWriter, err error) {
	status, code := MapErrorToStatus(err)
	WriteJSON(w, ErrorResponse{Error: err.Error(), Code: code}, status)
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 with CodeInvalidRequest
func BadRequest(w http.ResponseWriter, message string) {
	WriteJSON(w, ErrorResponse{Error: message, Code: CodeInvalidRequest}, http.StatusBadRequest)
}
