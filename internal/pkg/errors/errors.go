package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyTerminal is a generic sentinel for operations that are
	// only valid on a job that has not yet reached a terminal status.
	ErrAlreadyTerminal = errors.New("job already in a terminal state")
)
