package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so wrapped copies compare equal to the
// predefined sentinel values.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Predefined domain errors
var (
	// Input errors
	ErrValidationFailed = NewDomainError("VALIDATION_FAILED", "request validation failed")

	// Credential errors. All of these surface as 401 with the generic
	// UNAUTHORIZED code so the response does not leak which check failed.
	ErrUnauthorized       = NewDomainError("UNAUTHORIZED", "unauthorized")
	ErrInvalidCredentials = NewDomainError("INVALID_CREDENTIALS", "invalid email or password")
	ErrIncorrectPassword  = NewDomainError("INCORRECT_PASSWORD", "current password is incorrect")

	// Access token errors
	ErrInvalidToken = NewDomainError("INVALID_TOKEN", "invalid token")
	ErrExpiredToken = NewDomainError("EXPIRED_TOKEN", "token has expired")

	// Refresh token lifecycle errors
	ErrInvalidRefreshToken = NewDomainError("INVALID_REFRESH_TOKEN", "invalid refresh token")
	ErrRevokedRefreshToken = NewDomainError("REVOKED_REFRESH_TOKEN", "refresh token has been revoked")
	ErrExpiredRefreshToken = NewDomainError("EXPIRED_REFRESH_TOKEN", "refresh token has expired")
	ErrUserDeleted         = NewDomainError("USER_DELETED", "user account no longer exists")

	// OAuth errors
	ErrProviderNotConfigured = NewDomainError("PROVIDER_NOT_CONFIGURED", "oauth provider is not configured")
	ErrInvalidProviderToken  = NewDomainError("INVALID_PROVIDER_TOKEN", "provider token verification failed")
	ErrMissingProviderEmail  = NewDomainError("MISSING_PROVIDER_EMAIL", "provider token carries no email")
	ErrUnknownProvider       = NewDomainError("UNKNOWN_PROVIDER", "unknown oauth provider")

	// Signup / account errors
	ErrEmailExists      = NewDomainError("CONFLICT", "email already registered")
	ErrUnsupportedMedia = NewDomainError("UNSUPPORTED_MEDIA", "identity document image is required")
	ErrUserNotFound     = NewDomainError("NOT_FOUND", "user not found")
	ErrForbidden        = NewDomainError("FORBIDDEN", "insufficient role")
	ErrResetTokenUsed   = NewDomainError("RESET_TOKEN_INVALID", "reset token is invalid or has expired")

	// System errors
	ErrInternal = NewDomainError("INTERNAL_ERROR", "internal server error")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes.
// This should only be used in the handler/presentation layer.
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "VALIDATION_FAILED", "UNKNOWN_PROVIDER":
		return http.StatusBadRequest

	// 401 Unauthorized. Token-state codes deliberately collapse into the
	// same status so a caller cannot distinguish revoked from expired
	// from unknown.
	case "UNAUTHORIZED", "INVALID_CREDENTIALS", "INCORRECT_PASSWORD",
		"INVALID_TOKEN", "EXPIRED_TOKEN",
		"INVALID_REFRESH_TOKEN", "REVOKED_REFRESH_TOKEN",
		"EXPIRED_REFRESH_TOKEN", "USER_DELETED",
		"INVALID_PROVIDER_TOKEN", "MISSING_PROVIDER_EMAIL":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "FORBIDDEN":
		return http.StatusForbidden

	// 404 Not Found
	case "NOT_FOUND", "RESET_TOKEN_INVALID":
		return http.StatusNotFound

	// 409 Conflict
	case "CONFLICT":
		return http.StatusConflict

	// 415 Unsupported Media Type
	case "UNSUPPORTED_MEDIA":
		return http.StatusUnsupportedMediaType

	// 500 Internal Server Error (default). PROVIDER_NOT_CONFIGURED is an
	// operational fault, not a client error.
	default:
		return http.StatusInternalServerError
	}
}

// PublicCode returns the error code suitable for the response envelope.
// Credential and token failures are reported uniformly as UNAUTHORIZED.
func PublicCode(err error) string {
	domainErr := GetDomainError(err)
	if domainErr == nil {
		return "INTERNAL_ERROR"
	}
	if domainErrorToHTTPStatus(domainErr) == http.StatusUnauthorized {
		return "UNAUTHORIZED"
	}
	return domainErr.Code
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
