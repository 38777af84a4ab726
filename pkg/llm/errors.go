package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure.
type ErrorType string

const (
	ErrorTypeAuth      ErrorType = "auth"     // bad or missing API key
	ErrorTypeModel     ErrorType = "model"    // model not found
	ErrorTypeEndpoint  ErrorType = "endpoint" // connection, DNS, 404, timeout
	ErrorTypeRateLimit ErrorType = "rate_limit"
	ErrorTypeResponse  ErrorType = "response" // well-formed call, unusable reply
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a structured provider error.
type Error struct {
	Type      ErrorType
	Message   string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// IsRetryable implements the retry.RetryableError interface, so the retry
// package can back off on transient provider failures without importing llm.
func (e *Error) IsRetryable() bool { return e.Retryable }

// NewError creates a structured provider error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{Type: errType, Message: message, Retryable: retryable, Cause: cause}
}

// ClassifyError categorizes a raw provider error. Already-classified errors
// pass through unchanged.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "invalid api key"):
		return NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return NewError(ErrorTypeModel, "model not found", false, err)
	case strings.Contains(lower, "404"):
		return NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "overloaded"):
		return NewError(ErrorTypeRateLimit, "rate limited", true, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		return NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded"):
		return NewError(ErrorTypeEndpoint, "request timeout", true, err)
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") ||
		strings.Contains(lower, "503"):
		return NewError(ErrorTypeEndpoint, "provider server error", true, err)
	default:
		return NewError(ErrorTypeUnknown, "provider call failed", false, err)
	}
}
