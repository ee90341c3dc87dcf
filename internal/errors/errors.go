// Package errors provides error code definitions shared across FieldSync.
package errors

import "fmt"

// ErrorCode represents a unique error code surfaced to API clients and logs.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Store errors
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrRecordCorrupt    ErrorCode = "RECORD_CORRUPT"
	ErrMigration        ErrorCode = "MIGRATION_FAILED"

	// Queue errors
	ErrUnknownAction   ErrorCode = "UNKNOWN_ACTION"
	ErrDeliveryFailed  ErrorCode = "DELIVERY_FAILED"
	ErrDrainInProgress ErrorCode = "DRAIN_IN_PROGRESS"

	// Remote errors
	ErrRemoteRejected    ErrorCode = "REMOTE_REJECTED"
	ErrRemoteUnreachable ErrorCode = "REMOTE_UNREACHABLE"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the error code of err, or ErrInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternal
}
