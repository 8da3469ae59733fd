package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"vendzz/internal/service"
)

// SuccessResponse is the envelope for successful responses
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for error responses
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail holds error information
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondJSON writes a success response with the given status code
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data}); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes an error response with the given status code
func RespondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   ErrorDetail{Code: code, Message: message},
	}); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// HandleServiceError maps service errors to HTTP status codes
func HandleServiceError(w http.ResponseWriter, err error) {
	var validationErr *service.ValidationError
	var notFoundErr *service.NotFoundError
	var conflictErr *service.ConflictError
	var configErr *service.ConfigurationError

	switch {
	case errors.As(err, &validationErr):
		RespondError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationErr.Message)
	case errors.As(err, &notFoundErr):
		RespondError(w, http.StatusNotFound, "NOT_FOUND", notFoundErr.Error())
	case errors.As(err, &conflictErr):
		RespondError(w, http.StatusConflict, "CONFLICT", conflictErr.Message)
	case errors.As(err, &configErr):
		RespondError(w, http.StatusInternalServerError, "CONFIGURATION_ERROR", configErr.Message)
	default:
		log.Printf("internal error: %v", err)
		RespondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
	}
}
