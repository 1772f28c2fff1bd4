// Package engine applies workflow transitions to applications: the executor
// records validated transitions, the gateway serves manual requests, and the
// scheduler drives automatic progression. All three serialize per-application
// work through the state store's lease.
package engine

import "errors"

// Normal rejection outcomes of a manual transition request. These are
// surfaced to the caller, not logged as system errors.
var (
	// ErrBusy indicates the application's lease is currently held; the
	// caller decides whether and when to retry.
	ErrBusy = errors.New("application is busy")

	// ErrNoSuchTransition indicates no transition with the requested name
	// leaves the application's current stage.
	ErrNoSuchTransition = errors.New("no such transition from current stage")

	// ErrPermissionDenied indicates the actor lacks a permission the
	// transition requires.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConditionNotMet indicates the transition's condition evaluated
	// false against the application's current data.
	ErrConditionNotMet = errors.New("transition condition not met")

	// ErrTemplateNotRegistered indicates the application references a
	// template version the registry does not hold.
	ErrTemplateNotRegistered = errors.New("template version not registered")
)
