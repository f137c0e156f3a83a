// Package errors provides application-level error types and utilities.
// It defines the error kinds the data layer and realtime hub surface to
// callers: validation, not found, constraint, connectivity, unsupported
// operation, authentication and internal errors.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConstraint     ErrorType = "constraint_violation"
	ErrorTypeConnectivity   ErrorType = "connectivity_error"
	ErrorTypeUnsupported    ErrorType = "unsupported_operation"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeInternal       ErrorType = "internal_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newAppError(t ErrorType, code int, message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

// NewConstraintError creates a new constraint violation error (duplicate key,
// dangling reference)
func NewConstraintError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConstraint, http.StatusConflict, message, details...)
}

// NewConnectivityError creates a new connectivity error (backend unreachable
// or timed out)
func NewConnectivityError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeConnectivity, http.StatusServiceUnavailable, message, details...)
}

// NewUnsupportedError creates an error for operations the active backend
// cannot implement
func NewUnsupportedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnsupported, http.StatusNotImplemented, message, details...)
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeAuthentication, http.StatusUnauthorized, message, details...)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func isType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsConstraintError checks if the error is a constraint violation
func IsConstraintError(err error) bool { return isType(err, ErrorTypeConstraint) }

// IsConnectivityError checks if the error is a connectivity error
func IsConnectivityError(err error) bool { return isType(err, ErrorTypeConnectivity) }

// IsUnsupportedError checks if the error is an unsupported operation error
func IsUnsupportedError(err error) bool { return isType(err, ErrorTypeUnsupported) }

// IsAuthenticationError checks if the error is an authentication error
func IsAuthenticationError(err error) bool { return isType(err, ErrorTypeAuthentication) }

// IsDuplicateError checks if the error is a database duplicate key error
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// MySQL duplicate entry error
	if strings.Contains(errStr, "Duplicate entry") || strings.Contains(errStr, "duplicate key") {
		return true
	}
	// SQLite unique violation
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	return false
}
