package services

import "errors"

// Error kinds. Every error a service returns wraps exactly one of these, so
// callers classify failures with errors.Is instead of matching messages.
var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnavailable        = errors.New("service unavailable")
)

// hiddenTaskError is returned when a completed task exists but the actor may
// not see it. It reads as a missing task and matches both ErrTaskNotFound and
// ErrPermissionDenied.
type hiddenTaskError struct{}

func (hiddenTaskError) Error() string {
	return ErrTaskNotFound.Error()
}

func (hiddenTaskError) Unwrap() []error {
	return []error{ErrTaskNotFound, ErrPermissionDenied}
}

// ErrTaskHidden is the masked lookup failure for completed tasks.
var ErrTaskHidden error = hiddenTaskError{}
