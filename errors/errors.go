// Package errors defines the failure taxonomy shared by every mutation
// procedure. Callers classify failures with errors.Is against these
// sentinels; descriptive context is added at the failure site with %w.
package errors

import "errors"

var (
	// ErrNotFound covers every reference to an unknown user, group or message.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized covers actor/target mismatches: caller is not the
	// sender of a message, caller is not the owner of a group.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidationFailed covers oversized avatars, oversized message
	// bodies and identity batches over the cap.
	ErrValidationFailed = errors.New("validation failed")

	// ErrWorkerPanic is reported by the supervisor when a worker crashes.
	ErrWorkerPanic = errors.New("worker panic")
)
