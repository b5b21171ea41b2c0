package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Common error types.
var (
	ErrConfigurationMissing = errors.New("configuration missing")
	ErrProvider             = errors.New("text provider error")
	ErrTimeout              = errors.New("timeout")
	ErrPlatform             = errors.New("platform api error")
	ErrPersistence          = errors.New("persistence error")
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrRateLimited          = errors.New("rate limited")
	ErrInternal             = errors.New("internal error")
)

// AppError represents an application error with a code, an HTTP status and a cause.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Op         string `json:"-"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the kind sentinel and the cause.
func (e *AppError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Err != nil {
		out = append(out, e.Err)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

// ErrorResponse represents the JSON error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ToResponse converts an AppError to ErrorResponse.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    e.Code,
			Message: e.Message,
		},
	}
}

// ConfigurationMissing reports an absent id or token. The feature depending on it is disabled.
func ConfigurationMissing(key string) *AppError {
	return &AppError{
		Code:       "CONFIGURATION_MISSING",
		Message:    fmt.Sprintf("%s is not configured", key),
		StatusCode: http.StatusServiceUnavailable,
		Err:        ErrConfigurationMissing,
	}
}

// Provider wraps a text generation failure.
func Provider(op string, cause error) *AppError {
	return &AppError{
		Code:       "PROVIDER_ERROR",
		Message:    "text generation failed",
		Op:         op,
		StatusCode: http.StatusBadGateway,
		Err:        ErrProvider,
		Cause:      cause,
	}
}

// Timeout creates a timeout error.
func Timeout(op string, message string) *AppError {
	if message == "" {
		message = "timed out"
	}
	return &AppError{
		Code:       "TIMEOUT",
		Message:    message,
		Op:         op,
		StatusCode: http.StatusGatewayTimeout,
		Err:        ErrTimeout,
	}
}

// Platform wraps a failed chat platform call.
func Platform(op string, cause error) *AppError {
	return &AppError{
		Code:       "PLATFORM_ERROR",
		Message:    "platform call failed",
		Op:         op,
		StatusCode: http.StatusBadGateway,
		Err:        ErrPlatform,
		Cause:      cause,
	}
}

// Persistence wraps a failed file or database operation.
func Persistence(op string, cause error) *AppError {
	return &AppError{
		Code:       "PERSISTENCE_ERROR",
		Message:    "persistence failed",
		Op:         op,
		StatusCode: http.StatusInternalServerError,
		Err:        ErrPersistence,
		Cause:      cause,
	}
}

// NotFound creates a not found error.
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Err:        ErrNotFound,
	}
}

// BadRequest creates a bad request error.
func BadRequest(message string) *AppError {
	return &AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        ErrBadRequest,
	}
}

// RateLimited creates a rate limited error.
func RateLimited(message string) *AppError {
	if message == "" {
		message = "too many requests"
	}
	return &AppError{
		Code:       "RATE_LIMITED",
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Err:        ErrRateLimited,
	}
}

// Internal creates an internal error.
func Internal(message string, cause error) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        ErrInternal,
		Cause:      cause,
	}
}

// GetStatusCode returns the appropriate HTTP status code for an error.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrConfigurationMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrProvider), errors.Is(err, ErrPlatform):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns the short taxonomy name of err for logs and metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, ErrProvider):
		return "provider"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrPlatform):
		return "platform"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	default:
		return "internal"
	}
}

// --- Error Checking Helpers ---

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsPlatform checks if the error came from the chat platform.
func IsPlatform(err error) bool {
	return errors.Is(err, ErrPlatform)
}

// IsConfigurationMissing checks if the error reports missing configuration.
func IsConfigurationMissing(err error) bool {
	return errors.Is(err, ErrConfigurationMissing)
}
