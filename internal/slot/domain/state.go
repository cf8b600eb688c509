package domain

import "fmt"

// State is the slot lifecycle state. The normal cycle is
// empty -> reserved -> occupied -> unlocking -> open -> empty; a failed
// unlock reverts unlocking -> occupied, and error is reachable from any
// state via a device-reported fault.
type State string

const (
	StateEmpty     State = "empty"
	StateReserved  State = "reserved"
	StateOccupied  State = "occupied"
	StateUnlocking State = "unlocking"
	StateOpen      State = "open"
	StateError     State = "error"
)

// ErrInvalidTransition is returned for a transition the lifecycle does not
// allow. The slot is not mutated.
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("slot state cannot move %s -> %s", e.From, e.To)
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateEmpty, StateReserved, StateOccupied, StateUnlocking, StateOpen, StateError:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s State) CanTransitionTo(next State) bool {
	if next == StateError {
		return true
	}
	switch s {
	case StateEmpty:
		return next == StateReserved
	case StateReserved:
		return next == StateOccupied || next == StateUnlocking || next == StateEmpty
	case StateOccupied:
		return next == StateUnlocking
	case StateUnlocking:
		return next == StateOpen || next == StateOccupied
	case StateOpen:
		return next == StateEmpty
	case StateError:
		return next == StateEmpty
	}
	return false
}

// Transition returns next if the lifecycle allows it, or ErrInvalidTransition.
func (s State) Transition(next State) (State, error) {
	if !s.CanTransitionTo(next) {
		return s, &ErrInvalidTransition{From: s, To: next}
	}
	return next, nil
}
