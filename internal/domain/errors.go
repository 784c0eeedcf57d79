package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by services, handlers and the widget client.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrMissingOrganization = errors.New("organization id is required")

	// ErrInvalidTransition is returned for a (status, event) pair missing from the
	// transition table.
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrInvalidState)
)

// ReasonError carries a collaborator-provided reason that is shown to the
// visitor verbatim.
type ReasonError struct {
	Reason string
}

func (e *ReasonError) Error() string {
	return e.Reason
}

// NotFoundf wraps ErrNotFound with a message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Unauthorizedf wraps ErrUnauthorized with a message.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnauthorized, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
