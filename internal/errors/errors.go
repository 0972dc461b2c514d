// Package errors defines the application error type shared by the API server and the bot.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeValidation   = "E100"
	CodeAuth         = "E101"
	CodeNotFound     = "E102"
	CodeConflict     = "E103"
	CodeDatabase     = "E200"
	CodeExternalAPI  = "E300"
	CodeState        = "E400"
	CodeRateLimit    = "E500"
	defaultUserError = "An unexpected error occurred."
)

// AppError carries a stable code, an operator-facing Message and a UserMessage
// that is safe to show to end users.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
	}
}

func NewAuthError(msg string) *AppError {
	return &AppError{
		Code:        CodeAuth,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
	}
}

func NewNotFoundError(msg string) *AppError {
	return &AppError{
		Code:        CodeNotFound,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
	}
}

func NewConflictError(msg string) *AppError {
	return &AppError{
		Code:        CodeConflict,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
	}
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeDatabase,
		Message:     fmt.Sprintf("Database error: %s", underlyingMsg),
		UserMessage: "Temporary problem, please try again later.",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        CodeExternalAPI,
		Message:     fmt.Sprintf("External API error: %s", apiName),
		UserMessage: "The service is temporarily unavailable.",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "That action is not possible right now.",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
		Severity:    SeverityLow,
	}
}

// HTTPStatus maps err to the response status code of the tracker API.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !stdErrors.As(err, &appErr) || appErr == nil {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeValidation, CodeConflict:
		return http.StatusBadRequest
	case CodeAuth:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeState:
		return http.StatusConflict
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the end-user text for err.
func UserMessage(err error) string {
	var appErr *AppError
	if stdErrors.As(err, &appErr) && appErr != nil && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return defaultUserError
}
