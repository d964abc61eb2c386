package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeUnauthorized    ErrorType = "unauthorized"
	ErrorTypeForbidden       ErrorType = "forbidden"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeQuotaExceeded   ErrorType = "quota_exceeded"
	ErrorTypeTooManyRequests ErrorType = "too_many_requests"
)

// Error codes refine the type for programmatic handling. Codes that
// would leak information to an attacker (which credential failed, why a
// capability was rejected) are deliberately absent from responses; those
// distinctions exist only in server logs.
const (
	CodeFileTooLarge         = "file_too_large"
	CodeStorageLimitExceeded = "storage_limit_exceeded"
)

// APIError represents a structured API error with type, code, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the
// top-level error response body.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request input.
func NewInvalidRequestError(message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Message: message}
}

// NewUnauthorizedError creates the generic authentication failure.
// Missing, unknown, and wrong credentials all produce this same value
// so callers cannot probe which case occurred.
func NewUnauthorizedError() *APIError {
	return &APIError{Type: ErrorTypeUnauthorized, Message: "authentication required"}
}

// NewForbiddenError creates an APIError for authorization failures that
// are safe to report as such (admin-only endpoints).
func NewForbiddenError(message string) *APIError {
	return &APIError{Type: ErrorTypeForbidden, Message: message}
}

// NewNotFoundError creates an APIError for resources that cannot be
// found. Also used when a resource exists but belongs to another
// application, so existence is not leaked.
func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

// NewQuotaError creates an APIError for rejected upload admissions.
func NewQuotaError(code, message string) *APIError {
	return &APIError{Type: ErrorTypeQuotaExceeded, Code: code, Message: message}
}

// NewServerError creates an APIError for internal failures.
func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}

// NewTooManyRequestsError creates an APIError for rate limiting.
func NewTooManyRequestsError(message string) *APIError {
	return &APIError{Type: ErrorTypeTooManyRequests, Message: message}
}
