package domain

import (
	"errors"
	"fmt"
)

// ============================================================================
// Submission Errors
// ============================================================================

var (
	ErrImageRequired = errors.New("image file is required")
	ErrEmptyImage    = errors.New("image file is empty")
	ErrImageTooLarge = errors.New("image file is too large")
)

// ============================================================================
// Recognition Errors
// ============================================================================

var (
	ErrRecognitionUnavailable = errors.New("recognition service unavailable")
	ErrRecognitionService     = errors.New("recognition service error")
)

// RecognitionUnavailableError is a transport level failure reaching the
// recognition service.
type RecognitionUnavailableError struct {
	Cause error
}

func (e *RecognitionUnavailableError) Error() string {
	if e.Cause == nil {
		return ErrRecognitionUnavailable.Error()
	}
	return e.Cause.Error()
}

func (e *RecognitionUnavailableError) Unwrap() []error {
	return []error{ErrRecognitionUnavailable, e.Cause}
}

// RecognitionServiceError is returned when the service answered with a
// non-success status or a body that could not be read. Body is the raw
// response for diagnostics.
type RecognitionServiceError struct {
	StatusCode int
	Body       string
}

func (e *RecognitionServiceError) Error() string {
	return fmt.Sprintf("recognition service returned status %d", e.StatusCode)
}

func (e *RecognitionServiceError) Unwrap() error {
	return ErrRecognitionService
}

// ============================================================================
// Expression Errors
// ============================================================================

// ErrExpression marks any failure to parse or compare an expression.
var ErrExpression = errors.New("expression error")
