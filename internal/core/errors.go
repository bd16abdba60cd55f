package core

import (
	"errors"
	"fmt"
	"strings"

	"fitroom/internal/llm"
	"fitroom/pkg/schema"
)

// Rejections. A rejected request changes nothing, not even the error slot.
var (
	ErrBusy        = errors.New("another generation is in progress")
	ErrNotReady    = errors.New("no image is displayed yet")
	ErrNoSelection = errors.New("nothing selected")
	ErrAlreadyWorn = errors.New("garment is already worn")
	ErrPoseIndex   = errors.New("pose index out of range")
)

// Timeline misuse.
var (
	ErrTimelineActive   = errors.New("timeline already initialized")
	ErrTimelineInactive = errors.New("timeline not initialized")
	ErrLayerIndex       = errors.New("layer index out of range")
	ErrBaseLayerRemoval = errors.New("cannot remove the base model")
)

// IsRejected reports whether err is a silent no-op rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrNoSelection) ||
		errors.Is(err, ErrAlreadyWorn) ||
		errors.Is(err, ErrPoseIndex)
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// LockError represents a file locking error.
type LockError struct {
	Operation string
	Message   string
	Err       error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %s", e.Operation, e.Message)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// StructureError is a request that would break the outfit history's shape.
type StructureError struct {
	Operation string
	Message   string
	Err       error
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// GenerationError is a failed call to an image or analysis capability.
type GenerationError struct {
	Operation string // "apply garment", "change pose", ...
	Kind      string // llm error type, or "unsupported_mime"
	Message   string
	Err       error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// newGenerationError classifies err for operation.
func newGenerationError(operation string, err error) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}

	kind := llm.ErrorType(err)
	if errors.Is(err, schema.ErrUnsupportedMimeType) {
		kind = "unsupported_mime"
	}
	if kind == "" {
		kind = "unknown"
	}

	return &GenerationError{
		Operation: operation,
		Kind:      kind,
		Message:   err.Error(),
		Err:       err,
	}
}

// UserMessage renders err as a sentence for the person in front of the mirror.
// Rejections map to an empty string.
func UserMessage(err error) string {
	if err == nil || IsRejected(err) {
		return ""
	}

	var se *StructureError
	if errors.As(err, &se) {
		return capitalize(se.Message) + "."
	}

	if errors.Is(err, schema.ErrUnsupportedMimeType) {
		return "This file type is not supported. Please use a format like PNG, JPEG, or WEBP."
	}

	prefix := "Something went wrong"
	var ge *GenerationError
	if errors.As(err, &ge) {
		prefix = "Failed to " + ge.Operation
	}

	var le *llm.LLMError
	if errors.As(err, &le) {
		return fmt.Sprintf("%s. %s", prefix, le.Message)
	}

	if ge != nil && ge.Err != nil {
		err = ge.Err
	}
	return fmt.Sprintf("%s. %s", prefix, err.Error())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
