package errors

import (
	"encoding/json"
	"net/http"
)

// AppError is an error response returned to API clients. Message is the only
// field serialized; clients match on its exact text.
type AppError struct {
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	return e.Message
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(e)
}

// ============================================================
// ERROR CONSTRUCTORS
// ============================================================

// Client errors are reported with 200 so callers only need to inspect the body.

func InvalidURL() *AppError {
	return &AppError{
		Message:    "invalid url",
		StatusCode: http.StatusOK,
	}
}

func URLNotFound() *AppError {
	return &AppError{
		Message:    "No short URL found for the given input",
		StatusCode: http.StatusOK,
	}
}

// Malformed Request (400)
func InvalidBody() *AppError {
	return &AppError{
		Message:    "invalid request body",
		StatusCode: http.StatusBadRequest,
	}
}

// Rate Limit Error (429)
func RateLimitExceeded() *AppError {
	return &AppError{
		Message:    "rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}
}

// Server Errors (500)
func Internal() *AppError {
	return &AppError{
		Message:    "server error",
		StatusCode: http.StatusInternalServerError,
	}
}
