package provider

import (
	"errors"
	"fmt"
)

// Class partitions adapter failures by retry eligibility.
type Class string

const (
	// ClassTransient marks failures eligible for a fallback attempt
	// (timeouts, rate limits, upstream 5xx).
	ClassTransient Class = "transient"

	// ClassFatal marks failures that no retry can fix (malformed
	// document, unknown provider, misconfiguration).
	ClassFatal Class = "fatal"
)

// Error is a classified adapter failure.
type Error struct {
	Class    Class
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %s failure: %v", e.Provider, e.Class, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a transient provider failure.
func Transient(providerID string, err error) *Error {
	return &Error{Class: ClassTransient, Provider: providerID, Err: err}
}

// Fatal wraps err as a fatal provider failure.
func Fatal(providerID string, err error) *Error {
	return &Error{Class: ClassFatal, Provider: providerID, Err: err}
}

// IsTransient reports whether err is classified as transient. Errors
// without a classification default to transient so unknown failures
// still get their fallback chance.
func IsTransient(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class == ClassTransient
	}
	return true
}

// IsFatal reports whether err is classified as fatal.
func IsFatal(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Class == ClassFatal
	}
	return false
}
