// models/errors.go - Error taxonomy shared by persistence and services
package models

import "errors"

var (
	// ErrNotFound is returned when a frame, challenge or question is missing or the id is empty.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned for malformed input or out-of-range step state.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned for stale writes and for operations the current state forbids.
	ErrConflict = errors.New("conflict")
	// ErrPersistence wraps backing store read/write failures.
	ErrPersistence = errors.New("persistence failure")
)
