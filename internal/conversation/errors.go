// ABOUTME: Error values returned by conversations and the registry
// ABOUTME: TransitionError carries both states so callers can branch with errors.As

package conversation

import (
	"errors"
	"fmt"
)

// ErrTransition matches every *TransitionError via errors.Is.
var ErrTransition = errors.New("invalid state transition")

// ErrInvalidArgument is returned for calls that can never succeed as made.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrNoTask is returned by AwaitTaskResult when no task is attached.
var ErrNoTask = errors.New("conversation has no pending task")

// ErrUnknownState is returned when parsing a name that is not a State.
var ErrUnknownState = errors.New("unknown state")

// TransitionError reports a transition the table does not allow.
// The conversation is left untouched when it is returned.
type TransitionError struct {
	Current   State
	Attempted State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition to %s from %s", e.Attempted, e.Current)
}

// Is makes errors.Is(err, ErrTransition) true for any TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrTransition
}
