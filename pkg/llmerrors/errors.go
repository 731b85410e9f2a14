// Package llmerrors provides structured error classification for upstream LLM API calls.
package llmerrors

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrorType categorizes an upstream failure for retry decisions.
type ErrorType int8

const (
	// Retryable error types.

	// ErrorTypeRateLimit represents rate limiting errors (429, quota exceeded).
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient represents transient errors (5xx, EOF, connection reset, timeout).
	ErrorTypeTransient

	// Non-retryable error types.

	// ErrorTypeAuth represents authentication errors (401/403, bad API key).
	ErrorTypeAuth
	// ErrorTypeBadPrompt represents malformed request errors (4xx other than 429).
	ErrorTypeBadPrompt
	// ErrorTypeCancelled represents a caller-initiated cancellation.
	ErrorTypeCancelled

	// ErrorTypeUnknown is the default for unclassified errors.
	ErrorTypeUnknown
)

// String returns the string representation of the error type.
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	case ErrorTypeCancelled:
		return "cancelled"
	case ErrorTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Error is a classified upstream error with retry metadata.
type Error struct {
	Err        error     // Wrapped underlying error
	Message    string    // Human-readable error message
	Type       ErrorType // Classified error type
	StatusCode int       // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("LLM error (%s): %s", e.Type.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("LLM error (%s): %v", e.Type.String(), e.Err)
	}
	return fmt.Sprintf("LLM error (%s): status %d", e.Type.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error type should be retried.
// Blocklist approach: everything is retryable unless explicitly final.
func (e *Error) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeAuth, ErrorTypeBadPrompt, ErrorTypeCancelled:
		return false
	default:
		return true
	}
}

// Reason renders the error as a single diagnostic line including the HTTP
// status when one was captured, e.g. "HTTP 503: server error".
func (e *Error) Reason() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
	}
	if msg == "" {
		return e.Type.String()
	}
	return msg
}

// Is checks if an error is of a specific type.
func Is(err error, errorType ErrorType) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type of an error, or ErrorTypeUnknown if not classified.
func TypeOf(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}

// New creates a new classified error.
func New(errorType ErrorType, message string) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
	}
}

// NewWithStatus creates a new classified error with an HTTP status.
func NewWithStatus(errorType ErrorType, statusCode int, message string) *Error {
	return &Error{
		Type:       errorType,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewWithCause creates a new classified error wrapping another error.
func NewWithCause(errorType ErrorType, cause error, message string) *Error {
	return &Error{
		Type:    errorType,
		Err:     cause,
		Message: message,
	}
}

// Classify maps a raw provider or transport error to a classified *Error.
// Already-classified errors pass through unchanged.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewWithCause(ErrorTypeTransient, err, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewWithCause(ErrorTypeCancelled, err, "request cancelled")
	}

	errStr := err.Error()

	if status := ExtractStatusCode(errStr); status > 0 {
		return classifyStatus(status, err)
	}

	lower := strings.ToLower(errStr)

	switch {
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "connection"),
		strings.Contains(lower, "network"),
		strings.Contains(lower, "no such host"),
		strings.Contains(lower, "temporary"),
		strings.Contains(errStr, "EOF"),
		strings.Contains(lower, "reset"):
		return NewWithCause(ErrorTypeTransient, err, "network or connection error")
	case strings.Contains(lower, "rate"),
		strings.Contains(lower, "quota"),
		strings.Contains(lower, "overloaded"):
		return NewWithCause(ErrorTypeRateLimit, err, "rate limiting detected")
	case strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "api key"),
		strings.Contains(lower, "authentication"):
		return NewWithCause(ErrorTypeAuth, err, "authentication error")
	case strings.Contains(lower, "invalid"),
		strings.Contains(lower, "malformed"),
		strings.Contains(lower, "too large"):
		return NewWithCause(ErrorTypeBadPrompt, err, "prompt or request error")
	}

	return NewWithCause(ErrorTypeUnknown, err, "unclassified error")
}

// ClassifyStatus builds a classified error directly from an HTTP status code.
func ClassifyStatus(statusCode int, cause error) *Error {
	return classifyStatus(statusCode, cause)
}

func classifyStatus(status int, cause error) *Error {
	e := &Error{
		Err:        cause,
		StatusCode: status,
	}
	switch {
	case status == 401:
		e.Type = ErrorTypeAuth
		e.Message = "authentication failed - check API key"
	case status == 403:
		e.Type = ErrorTypeAuth
		e.Message = "permission denied - check API access"
	case status == 429:
		e.Type = ErrorTypeRateLimit
		e.Message = "rate limit exceeded"
	case status >= 500:
		e.Type = ErrorTypeTransient
		e.Message = "server error"
	case status >= 400:
		e.Type = ErrorTypeBadPrompt
		e.Message = "bad request - check prompt format and parameters"
	default:
		e.Type = ErrorTypeUnknown
		e.Message = fmt.Sprintf("unexpected status %d", status)
	}
	return e
}

// statusMarkers are prefixes SDKs commonly use before a status code in error text.
var statusMarkers = []string{
	"status code: ",
	"status code ",
	"status: ",
	"status ",
	"HTTP ",
	"code ",
}

// ExtractStatusCode attempts to extract an HTTP status code from an error string.
func ExtractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, marker := range statusMarkers {
		idx := strings.Index(lower, strings.ToLower(marker))
		if idx == -1 {
			continue
		}
		start := idx + len(marker)
		if start+3 > len(errStr) {
			continue
		}
		code, err := strconv.Atoi(errStr[start : start+3])
		if err != nil {
			continue
		}
		if code >= 100 && code < 600 {
			return code
		}
	}
	return 0
}
