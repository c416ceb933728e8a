// Package core provides the memory store adapter, its configuration, and the
// record types shared across the service.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidConfig indicates that the provided configuration is invalid,
	// e.g. a backend was selected without its mandatory prerequisite.
	// This error is fatal at startup and prevents serving.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrBackendUnavailable indicates that the storage backend could not be
	// reached. It is surfaced per-request and never triggers an automatic
	// fallback to another backend.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates that a backend call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// StoreError wraps errors with operation context.
//
// It provides additional context about which operation failed,
// making error messages more informative for debugging.
//
// Example:
//
//	err := &StoreError{
//	    Op:  "AddMemory",
//	    Err: ErrBackendUnavailable,
//	}
//	// Error() returns: "memchat: AddMemory: backend unavailable"
type StoreError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "memchat: <Op>: <Err>"
func (e *StoreError) Error() string {
	return fmt.Sprintf("memchat: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with StoreError.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewStoreError("AddMemory", err)
//	}
//
// Parameters:
//   - op: Name of the operation (e.g., "AddMemory", "QueryMemories")
//   - err: The underlying error to wrap
//
// Returns a StoreError, or nil if err is nil.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{
		Op:  op,
		Err: err,
	}
}
