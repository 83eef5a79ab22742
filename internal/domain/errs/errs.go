// internal/domain/errs/errs.go
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by stores and services. The HTTP layer maps these to
// status codes with errors.Is, so wrap them with %w rather than replacing them.
var (
	ErrValidation         = errors.New("validation failed")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid state transition")
	ErrDuplicate          = errors.New("already exists")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrOnboardingDone     = errors.New("onboarding already completed")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a *ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
