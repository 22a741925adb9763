package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when no transition with the requested
	// name leaves the record's current state. It usually means the caller is
	// working from a stale view and should refetch.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrDenied is returned when the guard refuses a legal transition for
	// this actor or payload. Recoverable and user-actionable.
	ErrDenied = errors.New("transition denied")

	// ErrMalformedDefinition is returned by definition validation at startup.
	// It indicates a programming error in the static tables and is fatal.
	ErrMalformedDefinition = errors.New("malformed state machine definition")
)

// DenialReason distinguishes why the guard refused a transition so callers
// can surface a specific message instead of a generic failure.
type DenialReason string

const (
	DenialWrongRole       DenialReason = "wrong_role"
	DenialMissingField    DenialReason = "missing_field"
	DenialConditionFailed DenialReason = "condition_failed"
)

// Denial carries the guard's refusal with a machine-readable reason and a
// human-readable message. It unwraps to ErrDenied.
type Denial struct {
	Reason     DenialReason
	Transition string
	Message    string
}

// Error implements the error interface
func (d *Denial) Error() string {
	return fmt.Sprintf("transition %s denied (%s): %s", d.Transition, d.Reason, d.Message)
}

// Unwrap makes errors.Is(err, ErrDenied) hold for all denials
func (d *Denial) Unwrap() error {
	return ErrDenied
}
