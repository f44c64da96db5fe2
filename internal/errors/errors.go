// Package errors provides centralized error handling for FAIR Combine.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the application. All error types can be
// checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrConfiguration indicates a malformed or inconsistent indicator
	// catalogue or service configuration. Fatal at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrConstruction indicates the session task tree could not be built,
	// for example because two tasks claim the same indicator name.
	ErrConstruction = errors.New("session construction failed")

	// ErrAuthorization indicates a status update against a disabled task
	// was submitted without the privileged evaluator credential.
	ErrAuthorization = errors.New("task update not authorized")

	// ErrSessionNotFound indicates the requested session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists indicates a resumed session conflicts with an
	// existing session under the same id.
	ErrSessionExists = errors.New("session already exists")

	// ErrTaskNotFound indicates the requested task does not exist in
	// the session tree.
	ErrTaskNotFound = errors.New("task not found")

	// ErrIndicatorNotFound indicates the named indicator is not part of
	// the loaded catalogue.
	ErrIndicatorNotFound = errors.New("indicator not found")

	// ErrLockTimeout indicates a session lock could not be acquired
	// within the timeout period. The operation is safe to retry.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrStore indicates a backing-store operation failed after the
	// mutation was computed. The in-memory state is unconfirmed.
	ErrStore = errors.New("store operation failed")

	// ErrDuplicateDependency indicates a dependency declaration lists
	// the same indicator name more than once.
	ErrDuplicateDependency = errors.New("duplicate dependency entry")

	// ErrDependencyMismatch indicates the tasks supplied to a dependency
	// check do not exactly match the declared dependency set.
	ErrDependencyMismatch = errors.New("dependency set mismatch")

	// ErrDependencyCycle indicates the indicator catalogue declares a
	// cyclic dependency chain.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrInvalidStatus indicates a status value outside the defined set.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrInvalidSubject indicates a subject descriptor failed validation.
	ErrInvalidSubject = errors.New("invalid subject")

	// ErrUnknownEvaluator indicates no evaluator is registered under the
	// name an indicator is mapped to.
	ErrUnknownEvaluator = errors.New("unknown evaluator")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")
)
