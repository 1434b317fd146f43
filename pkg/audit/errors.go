package audit

import "errors"

var (
	// ErrEventValidation is returned when an event misses required fields.
	ErrEventValidation = errors.New("audit: event validation failed")

	// ErrStorageFailed wraps storage write failures.
	ErrStorageFailed = errors.New("audit: failed to store event")
)
