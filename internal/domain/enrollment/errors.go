package enrollment

import (
	"errors"
	"fmt"
)

// ErrNoUnusedSlot is returned by a SlotRepository when no slot with
// id_used = false exists.
var ErrNoUnusedSlot = errors.New("no unused participant slot")

// Sentinels matched by errors.Is against an *AllocationError.
var (
	ErrPoolExhausted      = errors.New("participant pool exhausted")
	ErrAllocationConflict = errors.New("participant allocation conflict")
	ErrTransport          = errors.New("slot store unavailable")
)

// ErrorKind classifies a failed claim.
type ErrorKind string

const (
	KindPoolExhausted      ErrorKind = "PoolExhausted"
	KindAllocationConflict ErrorKind = "AllocationConflict"
	KindTransport          ErrorKind = "TransportError"
)

// AllocationError is returned by Allocator.Claim. All kinds are terminal for
// the submission that triggered the claim.
type AllocationError struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *AllocationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("claim participant slot: %s after %d attempt(s)", e.Kind, e.Attempts)
	}
	return fmt.Sprintf("claim participant slot: %s after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

func (e *AllocationError) Is(target error) bool {
	switch target {
	case ErrPoolExhausted:
		return e.Kind == KindPoolExhausted
	case ErrAllocationConflict:
		return e.Kind == KindAllocationConflict
	case ErrTransport:
		return e.Kind == KindTransport
	}
	return false
}

// UserMessage is the text shown to the participant.
func (e *AllocationError) UserMessage() string {
	switch e.Kind {
	case KindPoolExhausted:
		return "No available participant slots found. Please contact the administrator."
	case KindAllocationConflict:
		return "Failed to assign participant credentials. Please try again."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// KindOf returns the ErrorKind carried by err, or "" if err is not an
// allocation failure.
func KindOf(err error) ErrorKind {
	var ae *AllocationError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
