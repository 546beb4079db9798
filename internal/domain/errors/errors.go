// Package errors defines the application error taxonomy shared by all layers.
package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		message:   e.message,
		details:   details,
	}
}

// Predefined error types
var (
	// ErrCaptchaRequired rejects a state-mutating auth call that arrived
	// without a CAPTCHA token. This is a local pre-flight guard; no network
	// call is made.
	ErrCaptchaRequired = NewBaseError(
		http.StatusBadRequest,
		"CAPTCHA_REQUIRED",
		"Please complete the security check before continuing",
		"",
	)

	// ErrCaptchaFailed means the verification service rejected the token.
	ErrCaptchaFailed = NewBaseError(
		http.StatusForbidden,
		"CAPTCHA_FAILED",
		"Security check failed, please try again",
		"",
	)

	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		"Input validation failed",
		"",
	)

	ErrPasswordMismatch = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_MISMATCH",
		"Passwords do not match",
		"",
	)

	ErrPasswordTooShort = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_TOO_SHORT",
		"Password does not meet the minimum length",
		"",
	)

	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		"Invalid email or password",
		"",
	)

	ErrSessionMissing = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_MISSING",
		"No active session",
		"",
	)

	ErrProfileJoinFailed = NewBaseError(
		http.StatusInternalServerError,
		"PROFILE_JOIN_FAILED",
		"Could not load the user profile",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		"Resource not found",
		"",
	)

	ErrInternal = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		"An internal error occurred",
		"",
	)
)

// AuthAPIError carries a provider auth error verbatim. Mutating actions
// surface it to the caller unchanged; only the passive background sync path
// is allowed to degrade it to "no session".
type AuthAPIError struct {
	Status int    // HTTP status returned by the provider.
	Code   string // Provider error code when present.
	Detail string // Provider error description, shown to the user as-is.
}

// NewAuthAPIError creates an AuthAPIError from a provider response.
func NewAuthAPIError(status int, code, detail string) *AuthAPIError {
	return &AuthAPIError{Status: status, Code: code, Detail: detail}
}

// Error implements the error interface
func (e *AuthAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth api error (%s): %s", e.Code, e.Detail)
	}

	return fmt.Sprintf("auth api error: %s", e.Detail)
}

// HTTPCode returns the HTTP status code
func (e *AuthAPIError) HTTPCode() int {
	// The relay and the UI both treat provider auth failures as client errors.
	if e.Status >= http.StatusInternalServerError {
		return http.StatusBadGateway
	}

	return http.StatusBadRequest
}

// ErrorCode returns the business error code
func (e *AuthAPIError) ErrorCode() string {
	return "AUTH_API_ERROR"
}

// Message returns the provider's message verbatim
func (e *AuthAPIError) Message() string {
	return e.Detail
}

// Details returns detailed error information
func (e *AuthAPIError) Details() string {
	if e.Code == "" {
		return ""
	}

	return fmt.Sprintf("provider code %s, status %d", e.Code, e.Status)
}
