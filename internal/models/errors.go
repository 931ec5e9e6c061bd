package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid  = errors.New("token is invalid")
	ErrTokenNotFound = errors.New("token not found in storage")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")

	// ErrStorageUnavailable marks a transient storage condition that the
	// readiness prober retries instead of failing.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ValidationError carries field-level detail for 400-class responses.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AsValidationError returns the wrapped *ValidationError, if any.
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
