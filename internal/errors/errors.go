// Package errors provides the error-code taxonomy shared by the sync engine
// and the HTTP layer.
package errors

import "fmt"

// ErrorCode identifies a class of failure. Handlers map codes to HTTP
// statuses; the engine maps them to per-record outcomes.
type ErrorCode string

const (
	// Request errors
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"

	// Sync errors
	ErrTableNotAllowed ErrorCode = "TABLE_NOT_ALLOWED"
	ErrRecordInvalid   ErrorCode = "RECORD_INVALID"
	ErrConflict        ErrorCode = "CONFLICT_DETECTED"

	// Storage errors
	ErrDatabase ErrorCode = "DATABASE_ERROR"

	// Fallback
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError carries an error code alongside a message and optional cause.
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
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Is checks if an error carries a specific code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf extracts the code from an error, walking the wrap chain.
// Unclassified errors report ErrInternal.
func CodeOf(err error) ErrorCode {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrInternal
}
