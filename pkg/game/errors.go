package game

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input, such as a missing coordinate or
// an unknown player id.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// NotFoundError reports a missing session or player.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// ConflictError reports a request that lost to existing state: a duplicate
// session name or a join attempt on a full session.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// StateError reports a mutation that the session's lifecycle forbids, such
// as any write on a finished session or a transfer on a zone the player
// does not own or stand in.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

func IsState(err error) bool {
	var stateErr *StateError
	return errors.As(err, &stateErr)
}

// DependencyError reports a failed call to the session store or the
// identity provider after retries were exhausted. The in-memory state is
// rolled back before it surfaces.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func IsDependency(err error) bool {
	var dependencyErr *DependencyError
	return errors.As(err, &dependencyErr)
}
