// ABOUTME: Ordered conversation states and the transition table between them
// ABOUTME: State names are canonical and appear in callback tokens, so never renumber them

package conversation

import "fmt"

// State is one step of the labelling conversation.
type State int

// States in forward order. A completed conversation wraps back to StateInitial.
const (
	StateInitial State = iota
	StateItemReceived
	StateLabelling
	StateConfirming
)

var stateNames = [...]string{
	StateInitial:      "INITIAL",
	StateItemReceived: "ITEM_RECEIVED",
	StateLabelling:    "LABELLING",
	StateConfirming:   "CONFIRMING",
}

// String returns the canonical name of the state.
func (s State) String() string {
	if !s.Valid() {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Valid reports whether s is one of the defined states.
func (s State) Valid() bool {
	return s >= StateInitial && int(s) < len(stateNames)
}

// Previous returns the state before s in forward order. StateInitial has no
// predecessor and returns itself.
func (s State) Previous() State {
	if s <= StateInitial {
		return StateInitial
	}
	return s - 1
}

// ParseState maps a canonical name back to its State.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateInitial, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// canTransition reports whether target may follow current without forcing.
func canTransition(current, target State) bool {
	switch target {
	case StateItemReceived:
		return current == StateInitial
	case StateLabelling:
		// Re-entrant so the user can send labels again.
		return current == StateItemReceived || current == StateLabelling
	case StateConfirming:
		return current == StateLabelling
	case StateInitial:
		return true
	default:
		return false
	}
}
