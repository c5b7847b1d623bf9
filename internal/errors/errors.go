package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"

	// Portal-side kinds. These never reach an HTTP response.
	ErrCodeShapeValidation     = "SHAPE_VALIDATION"
	ErrCodeQuotaExceeded       = "QUOTA_EXCEEDED"
	ErrCodeRemoteUnavailable   = "REMOTE_UNAVAILABLE"
	ErrCodeReconciliationAbort = "RECONCILIATION_ABORT"
)

// AppError carries an error code, a human-readable message and, for backend
// errors, the HTTP status to respond with.
type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err, or anything it wraps, is an AppError with the given code.
func IsKind(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// As is re-exported so callers importing this package under the name errors
// do not also need the standard library package.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Is is re-exported for the same reason as As.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// New is re-exported for the same reason as As.
func New(text string) error {
	return stderrors.New(text)
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewUnauthorizedError creates a new UNAUTHORIZED error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

// NewShapeValidationError reports a record that failed structural validation.
func NewShapeValidationError(record string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeShapeValidation,
		Message: fmt.Sprintf("%s has an invalid shape: %s", record, reason),
	}
}

// NewQuotaExceededError reports a local write that did not fit the storage quota.
func NewQuotaExceededError(key string, size, quota int) *AppError {
	return &AppError{
		Code:    ErrCodeQuotaExceeded,
		Message: fmt.Sprintf("writing %s needs %d bytes, quota is %d bytes", key, size, quota),
	}
}

// NewRemoteUnavailableError wraps a failed remote call.
func NewRemoteUnavailableError(op string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeRemoteUnavailable,
		Message: fmt.Sprintf("remote %s failed", op),
		Err:     err,
	}
}

// NewReconciliationAbortError reports a sync cycle that was abandoned with local state untouched.
func NewReconciliationAbortError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeReconciliationAbort,
		Message: "reconciliation aborted, local state unchanged",
		Err:     err,
	}
}
