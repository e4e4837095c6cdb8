package http

import (
	"encoding/json"
	"net/http"
)

// Response helpers for consistent API responses

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// MessageResponse acknowledges a write
type MessageResponse struct {
	Message string `json:"message"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Headers are already sent; nothing useful can be done on failure
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{
		Error: message,
	})
}

// respondFieldError sends a 400 naming the offending field
func respondFieldError(w http.ResponseWriter, field, message string) {
	respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Details: map[string]string{field: message},
	})
}

// respondMessage sends a {"message": ...} response
func respondMessage(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, MessageResponse{
		Message: message,
	})
}
