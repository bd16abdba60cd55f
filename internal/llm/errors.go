package llm

import (
	"errors"
	"fmt"
)

// LLMError represents an error from the LLM client.
type LLMError struct {
	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Reason is the provider-reported block or finish reason (if any)
	Reason string

	// Code is the HTTP status code (if applicable)
	Code int

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeNetwork    = "network"
	ErrorTypeAPI        = "api"
	ErrorTypeValidation = "validation"
	ErrorTypeTimeout    = "timeout"
	ErrorTypeParse      = "parse"
	ErrorTypeBlocked    = "blocked"
	ErrorTypeSafety     = "safety"
	ErrorTypeEmpty      = "empty"
)

// Error implements the error interface.
func (e *LLMError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("LLM %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("LLM %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *LLMError) Unwrap() error {
	return e.Err
}

// ErrorType returns the LLMError type carried by err, or "" if none.
func ErrorType(err error) string {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ""
}

// NewNetworkError creates a network error.
func NewNetworkError(err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeNetwork,
		Message: "Failed to connect to OpenRouter API. Check your network connection.",
		Err:     err,
	}
}

// NewAPIError creates an API error with status code.
func NewAPIError(code int, message string) *LLMError {
	return &LLMError{
		Type:    ErrorTypeAPI,
		Code:    code,
		Message: fmt.Sprintf("OpenRouter API error: %s", message),
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeValidation,
		Message: fmt.Sprintf("Validation failed: %s", message),
		Err:     err,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError() *LLMError {
	return &LLMError{
		Type:    ErrorTypeTimeout,
		Message: "Request timed out. The model may be under heavy load.",
	}
}

// NewParseError creates a parse error.
func NewParseError(content string, err error) *LLMError {
	return &LLMError{
		Type:    ErrorTypeParse,
		Message: fmt.Sprintf("Failed to parse LLM output: %s", content),
		Err:     err,
	}
}

// NewBlockedError creates an error for a request the provider refused to process.
func NewBlockedError(reason, message string) *LLMError {
	msg := fmt.Sprintf("Request was blocked. Reason: %s.", reason)
	if message != "" {
		msg = fmt.Sprintf("%s %s", msg, message)
	}
	return &LLMError{
		Type:    ErrorTypeBlocked,
		Reason:  reason,
		Message: msg,
	}
}

// NewSafetyError creates an error for a generation stopped before completion.
func NewSafetyError(reason string) *LLMError {
	return &LLMError{
		Type:    ErrorTypeSafety,
		Reason:  reason,
		Message: fmt.Sprintf("Image generation stopped unexpectedly. Reason: %s. This often relates to safety settings.", reason),
	}
}

// NewEmptyResultError creates an error for a response without an image.
func NewEmptyResultError(text string) *LLMError {
	msg := "The AI model did not return an image. "
	if text != "" {
		msg += fmt.Sprintf("The model responded with text: %q", text)
	} else {
		msg += "This can happen due to safety filters or if the request is too complex. Please try a different image."
	}
	return &LLMError{
		Type:    ErrorTypeEmpty,
		Message: msg,
	}
}
