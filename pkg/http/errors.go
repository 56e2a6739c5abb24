package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundErrorf creates a 404 error.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return &AppError{Code: "ERR_NOT_FOUND", Message: fmt.Sprintf(format, a...), Status: http.StatusNotFound}
}

// InternalErrorf creates a 500 error.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return &AppError{Code: "ERR_INTERNAL", Message: fmt.Sprintf(format, a...), Status: http.StatusInternalServerError}
}
