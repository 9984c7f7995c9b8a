package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/docugen/docugen/pkg/engine"
	"github.com/docugen/docugen/pkg/jobexec"
	"github.com/docugen/docugen/pkg/storage"
)

// Note on API Error DTOs and Evolution Policy
//
// The JSON error payloads produced here (error, code, message) are part of
// the public API contract. Apply the DTO Evolution Policy:
// - Additive-only: add optional fields; do not remove/rename existing fields
// - Zero-value semantics: new fields must have safe zero-values; prefer `omitempty`
// - Breaking changes should be introduced under a new API version (v2)

// ErrorResponse represents a standard JSON error response.
// Used consistently across all API endpoints for error responses.
//
// Example:
//
//	{
//	  "error": "Conflict",
//	  "code": "INVALID_STATE",
//	  "message": "pause: invalid in state completed"
//	}
type ErrorResponse struct {
	Error   string `json:"error"`             // Short error type (e.g., "Not Found", "Conflict")
	Code    string `json:"code,omitempty"`    // Machine-readable error code (e.g., "JOB_NOT_FOUND", "INVALID_INPUT")
	Message string `json:"message,omitempty"` // Detailed error message (optional)
}

// WriteError writes a standard JSON error response to the client.
// It determines the HTTP status code from the error type:
//   - engine.ErrValidation / storage.InvalidInputError → 400 Bad Request
//   - engine.ErrInvalidState → 409 Conflict
//   - jobexec.ErrJobNotFound / storage.NotFoundError → 404 Not Found
//   - engine.ErrEngineFault and everything else → 500 Internal Server Error
//
// It also logs the error with structured logging for observability.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var statusCode int
	var errorType string
	var errorCode string

	var notFoundErr *storage.NotFoundError
	var invalidInputErr *storage.InvalidInputError

	switch {
	case errors.Is(err, engine.ErrValidation):
		statusCode = http.StatusBadRequest
		errorType = "Bad Request"
		errorCode = "VALIDATION_ERROR"
	case errors.As(err, &invalidInputErr):
		statusCode = http.StatusBadRequest
		errorType = "Bad Request"
		errorCode = "INVALID_INPUT"
	case errors.Is(err, engine.ErrInvalidState):
		statusCode = http.StatusConflict
		errorType = "Conflict"
		errorCode = "INVALID_STATE"
	case errors.Is(err, jobexec.ErrJobNotFound):
		statusCode = http.StatusNotFound
		errorType = "Not Found"
		errorCode = "JOB_NOT_FOUND"
	case errors.As(err, &notFoundErr):
		statusCode = http.StatusNotFound
		errorType = "Not Found"
		errorCode = "RESOURCE_NOT_FOUND"
	case errors.Is(err, engine.ErrEngineFault):
		statusCode = http.StatusInternalServerError
		errorType = "Internal Server Error"
		errorCode = "ENGINE_FAULT"
	default:
		statusCode = http.StatusInternalServerError
		errorType = "Internal Server Error"
		errorCode = "INTERNAL_ERROR"
	}

	logEvent := log.Error().
		Str("component", "api").
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", statusCode).
		Str("error_code", errorCode).
		Err(err)

	switch {
	case statusCode == http.StatusNotFound:
		logEvent.Msg("Resource not found")
	case statusCode >= 500:
		logEvent.Msg("Internal server error")
	default:
		logEvent.Msg("Client error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorType,
		Code:    errorCode,
		Message: err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode error response")
	}
}

// WriteJSONError writes a custom JSON error response with a specific status code.
// Use this when you need fine-grained control over the error response.
//
// Example:
//
//	WriteJSONError(w, http.StatusBadRequest, "Bad Request", "JOB_ID_REQUIRED", "job id is required")
func WriteJSONError(w http.ResponseWriter, statusCode int, errorType, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   errorType,
		Code:    errorCode,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode error response")
	}
}

// WriteJSON writes a JSON response to the client.
// Use this for successful API responses.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().
			Str("component", "api").
			Err(err).
			Msg("Failed to encode JSON response")
	}
}
