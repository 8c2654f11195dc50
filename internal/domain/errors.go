package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation failures.
var (
	ErrDimensionMismatch = errors.New("dimension mismatch")
	ErrLengthMismatch    = errors.New("length mismatch")
	ErrInvalidDimension  = errors.New("invalid dimension")
	ErrInvalidK          = errors.New("invalid k")
	ErrInvalidChunkSize  = errors.New("invalid chunk size")
	ErrInvalidOverlap    = errors.New("invalid overlap")
)

// ErrGeneratorDisabled is returned by Answer when no generator is configured.
var ErrGeneratorDisabled = errors.New("text generation is not configured")

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (%s)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}

// NewDimensionError reports a vector whose width differs from the expected dimension.
func NewDimensionError(field string, expected, actual int) *ValidationError {
	return NewValidationError(field, fmt.Sprintf("expected %d, got %d", expected, actual), ErrDimensionMismatch)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// EmbedError marks a failure of the embedding backend.
type EmbedError struct {
	Backend string
	Err     error
}

func (e *EmbedError) Error() string {
	return fmt.Sprintf("embedding backend %s: %v", e.Backend, e.Err)
}

func (e *EmbedError) Unwrap() error { return e.Err }
