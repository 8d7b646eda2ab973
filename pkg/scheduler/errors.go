package scheduler

import "errors"

var (
	// ErrMalformedInput is a caller bug: a nil endpoint or a node linked to itself.
	ErrMalformedInput = errors.New("scheduler: malformed input")
	// ErrClosed is returned once Close has been called or the executor refused work.
	ErrClosed = errors.New("scheduler: closed")
	// ErrTooManyWorkers is returned when a pool is asked for more than MaxWorkers.
	ErrTooManyWorkers = errors.New("scheduler: worker count exceeds maximum")
)
