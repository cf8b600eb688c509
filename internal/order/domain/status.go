package domain

import "fmt"

// Status is the order lifecycle state. Orders only advance
// created -> prepared -> assigned -> picked_up -> complete; cancelled is
// reachable from any non-terminal state. Terminal states never transition.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPrepared  Status = "prepared"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is returned for a transition the lifecycle does not
// allow. The order is not mutated.
type ErrInvalidTransition struct {
	From Status
	To   Status
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("order status cannot move %s -> %s", e.From, e.To)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusPrepared, StatusAssigned, StatusPickedUp, StatusComplete, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusCreated:
		return next == StatusPrepared
	case StatusPrepared:
		return next == StatusAssigned
	case StatusAssigned:
		return next == StatusPickedUp
	case StatusPickedUp:
		return next == StatusComplete
	}
	return false
}

// Transition returns next if the lifecycle allows it, or ErrInvalidTransition.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransitionTo(next) {
		return s, &ErrInvalidTransition{From: s, To: next}
	}
	return next, nil
}
