package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Completion errors
	ErrMalformedCompletion = errors.New("completion output does not match target schema")
	ErrEmptyCompletion     = errors.New("completion returned no content")

	// Pipeline errors
	ErrCompositionFailed = errors.New("itinerary composition failed")
	ErrWorkerFailed      = errors.New("expert worker failed")
	ErrUnknownDomain     = errors.New("unknown expert domain")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Storage errors
	ErrKeyNotFound     = errors.New("key not found")
	ErrSessionNotFound = errors.New("session not found")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")
	ErrRequestFailed    = errors.New("request failed")
	ErrTimeout          = errors.New("operation timeout")
)

// PipelineError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type PipelineError struct {
	Op      string // Operation that failed (e.g., "composer.Compose")
	Kind    string // Error kind (e.g., "ai", "search", "config")
	Stage   string // Pipeline stage, when applicable (e.g., "planning")
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *PipelineError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.Stage != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.Stage, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError
func NewPipelineError(op, kind string, err error) *PipelineError {
	return &PipelineError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsFormatError checks if an error came from schema coercion of a completion
func IsFormatError(err error) bool {
	return errors.Is(err, ErrMalformedCompletion) ||
		errors.Is(err, ErrEmptyCompletion)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsRetryable checks if an error is a transient network or availability issue
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrRequestFailed)
}
