package flow

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the controller. Match with errors.Is.
var (
	// ErrInvalidTransition: a move outside the topology or not allowed from
	// the current position. Never clamped.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrComprehensionCheckFailed is a retry signal carried on Outcome.Retry,
	// not a failure.
	ErrComprehensionCheckFailed = errors.New("comprehension check failed")
	// ErrPersistenceFailure: the completed session could not be written.
	// In-memory state is kept so the write can be retried.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrMissingAsset: a stimulus media file is unavailable.
	ErrMissingAsset = errors.New("missing asset")
)

// TransitionError describes a rejected move.
type TransitionError struct {
	FromPhase, FromStep int
	ToPhase, ToStep     int
	Reason              string
}

func (e *TransitionError) Error() string {
	if e.FromPhase == 0 {
		return fmt.Sprintf("invalid transition to (%d,%d): %s", e.ToPhase, e.ToStep, e.Reason)
	}
	return fmt.Sprintf("invalid transition (%d,%d) -> (%d,%d): %s",
		e.FromPhase, e.FromStep, e.ToPhase, e.ToStep, e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
