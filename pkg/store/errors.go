// Package store provides standardized error types for state store operations.
package store

import (
	"errors"
	"fmt"
)

// Standard store error types that all implementations should use.
var (
	// ErrStateNotFound indicates no workflow state exists for the application.
	ErrStateNotFound = errors.New("application workflow state not found")

	// ErrStateExists indicates the application already has workflow state.
	ErrStateExists = errors.New("application workflow state already exists")

	// ErrLeaseHeld indicates another holder owns a live lease on the application.
	ErrLeaseHeld = errors.New("lease held by another holder")

	// ErrLeaseNotHeld indicates the caller does not own a live lease on the application.
	ErrLeaseNotHeld = errors.New("lease not held")

	// ErrStaleTransition indicates the application left the expected stage
	// before the transition could be recorded.
	ErrStaleTransition = errors.New("stale transition")
)

// StateError wraps state-store errors with operation context.
type StateError struct {
	Op            string // Operation being performed (e.g. "Get", "AppendTransition")
	ApplicationID string
	Err           error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s failed for application %s: %v", e.Op, e.ApplicationID, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for state errors.
func (e *StateError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStateError creates a new state error with context.
func NewStateError(op, applicationID string, err error) *StateError {
	return &StateError{
		Op:            op,
		ApplicationID: applicationID,
		Err:           err,
	}
}

// IsLeaseHeld checks if an error indicates the application's lease is taken.
func IsLeaseHeld(err error) bool {
	return errors.Is(err, ErrLeaseHeld)
}

// IsStateNotFound checks if an error indicates missing workflow state.
func IsStateNotFound(err error) bool {
	return errors.Is(err, ErrStateNotFound)
}

// IsStaleTransition checks if an error indicates a stale transition attempt.
func IsStaleTransition(err error) bool {
	return errors.Is(err, ErrStaleTransition)
}
