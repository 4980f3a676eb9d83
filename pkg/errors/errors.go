package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInternal indicates an internal server error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeExternal indicates an error from external service
	ErrorTypeExternal ErrorType = "EXTERNAL"

	// ErrorTypeInvalidInterval indicates a time range whose start is not before its end
	ErrorTypeInvalidInterval ErrorType = "INVALID_INTERVAL"

	// ErrorTypeProviderNotFound indicates the requested care provider does not exist
	ErrorTypeProviderNotFound ErrorType = "PROVIDER_NOT_FOUND"

	// ErrorTypeStore indicates the availability store failed
	ErrorTypeStore ErrorType = "STORE"

	// ErrorTypeProvider indicates an external dependency (calendar, LLM, mail) failed
	ErrorTypeProvider ErrorType = "PROVIDER"

	// ErrorTypeMalformedRecommendation indicates recommender output could not be validated
	ErrorTypeMalformedRecommendation ErrorType = "MALFORMED_RECOMMENDATION"

	// ErrorTypeCalendarCommitFailed indicates the external calendar rejected a booking
	ErrorTypeCalendarCommitFailed ErrorType = "CALENDAR_COMMIT_FAILED"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// TypeOf returns the type of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err's chain contains an AppError of type t.
func IsType(err error, t ErrorType) bool {
	return TypeOf(err) == t
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewExternalError creates a new external service error
func NewExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeExternal,
		Message: message,
		Err:     err,
	}
}

// NewInvalidIntervalError creates a new invalid interval error
func NewInvalidIntervalError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeInvalidInterval,
		Message: message,
	}
}

// NewProviderNotFoundError creates a new provider not found error
func NewProviderNotFoundError(providerID string) *AppError {
	return &AppError{
		Type:    ErrorTypeProviderNotFound,
		Message: fmt.Sprintf("provider %s not found", providerID),
	}
}

// NewStoreError creates a new availability store error
func NewStoreError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStore,
		Message: message,
		Err:     err,
	}
}

// NewProviderError creates a new external dependency error
func NewProviderError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeProvider,
		Message: message,
		Err:     err,
	}
}

// NewMalformedRecommendationError creates a new malformed recommendation error
func NewMalformedRecommendationError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeMalformedRecommendation,
		Message: message,
		Err:     err,
	}
}

// NewCalendarCommitFailedError creates a new calendar commit error
func NewCalendarCommitFailedError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeCalendarCommitFailed,
		Message: message,
		Err:     err,
	}
}
