package model

import "errors"

// Common errors used across the application
var (
	// Authentication errors
	ErrAuthenticationRequired = errors.New("authentication required")

	// Lookup errors
	ErrNotFound      = errors.New("not found")
	ErrRiderNotFound = notFound("rider not found")
	ErrMatchNotFound = notFound("match not found")
	ErrTurnNotFound  = notFound("turn not found")

	// Request errors
	ErrValidation          = errors.New("validation failed")
	ErrInvalidParticipants = errors.New("match requires two distinct riders")
	ErrNotParticipant      = errors.New("rider may not act on this match")
	ErrForfeitOnly         = errors.New("a rider may only resolve a match in the opponent's favour")
	ErrHandleTaken         = errors.New("handle already taken")

	// State machine errors
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTurnInFlight      = errors.New("match already has a turn in flight")
	ErrAlreadyResolved   = errors.New("already resolved")
	ErrMatchNotActive    = errors.New("match is not active")
	ErrAlreadyReviewed   = errors.New("reviewer has already reviewed this turn")

	// Storage errors
	ErrVersionConflict = errors.New("record was modified concurrently")
)

// lookupError is a specific not-found error that also matches ErrNotFound
type lookupError struct {
	msg string
}

func notFound(msg string) error {
	return &lookupError{msg: msg}
}

func (e *lookupError) Error() string { return e.msg }

func (e *lookupError) Is(target error) bool { return target == ErrNotFound }

// ValidationError wraps ErrValidation with a human-readable message
type ValidationError struct {
	Message string
}

// NewValidationError creates a validation error with the given message
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }
