package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing records.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is a generic sentinel for rejected writes.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrValidationFailed marks input rejected before any cache mutation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrRemoteWriteFailed marks a repository update that did not take effect;
	// the optimistic cache write has already been rolled back when it surfaces.
	ErrRemoteWriteFailed = errors.New("remote write failed")
)
