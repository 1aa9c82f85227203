package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation & configuration
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Operator API
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Store
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"

	// Account & action lifecycle
	ErrCodeAuthFailed      ErrorCode = "AUTH_FAILED"
	ErrCodeActionFailed    ErrorCode = "ACTION_FAILED"
	ErrCodeNotReady        ErrorCode = "NOT_READY"
	ErrCodeResourceBlocked ErrorCode = "RESOURCE_BLOCKED"
	ErrCodeSession         ErrorCode = "SESSION_ERROR"
	ErrCodeUnknownAction   ErrorCode = "UNKNOWN_ACTION"

	// Process
	ErrCodeVersionMismatch ErrorCode = "VERSION_MISMATCH"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error carrying a code and optional details
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidConfig(message string) *AppError {
	return New(ErrCodeInvalidConfig, message)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func StoreUnavailable(label string, cause error) *AppError {
	return Wrap(ErrCodeStoreUnavailable, fmt.Sprintf("Store unavailable during %s", label), cause)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func AuthFailed(cause error) *AppError {
	return Wrap(ErrCodeAuthFailed, "Authentication failed", cause)
}

func ActionFailed(code string, reason string) *AppError {
	return New(ErrCodeActionFailed, fmt.Sprintf("Action %s failed: %s", code, reason))
}

func NotReady(code string, reason string) *AppError {
	return New(ErrCodeNotReady, fmt.Sprintf("Action %s not ready: %s", code, reason))
}

func ResourceBlocked(resourceID string) *AppError {
	return New(ErrCodeResourceBlocked, fmt.Sprintf("Resource %s is blocked", resourceID))
}

func Session(message string, cause error) *AppError {
	return Wrap(ErrCodeSession, message, cause)
}

func UnknownAction(code string) *AppError {
	return New(ErrCodeUnknownAction, fmt.Sprintf("No handler registered for action %s", code))
}

func VersionMismatch(local, published string) *AppError {
	return New(ErrCodeVersionMismatch, fmt.Sprintf("Local version %s does not match published version %s", local, published))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code anywhere in its chain
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
