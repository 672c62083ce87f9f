package service

import "net/http"

// Error represents a domain error that maps onto an HTTP response
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// ErrUnauthorized is returned for missing or invalid credentials
var ErrUnauthorized = &Error{Message: "Unauthorized", StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}

// NewValidationError creates a 400 error with a descriptive message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}

// NewConflictError creates a 409 error with a descriptive message
func NewConflictError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
	}
}

// NewNotFoundError creates a 404 error with a descriptive message
func NewNotFoundError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
	}
}
