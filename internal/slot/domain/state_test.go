package domain

import (
	"errors"
	"testing"
)

func TestState_NormalCycle(t *testing.T) {
	cycle := []State{StateEmpty, StateReserved, StateOccupied, StateUnlocking, StateOpen, StateEmpty}
	for i := 0; i < len(cycle)-1; i++ {
		if !cycle[i].CanTransitionTo(cycle[i+1]) {
			t.Errorf("%s -> %s should be allowed", cycle[i], cycle[i+1])
		}
	}
}

func TestState_UnlockFailureRevertsToOccupied(t *testing.T) {
	if !StateUnlocking.CanTransitionTo(StateOccupied) {
		t.Error("unlocking -> occupied should be allowed")
	}
	if StateUnlocking.CanTransitionTo(StateEmpty) {
		t.Error("unlocking -> empty must never be allowed")
	}
}

func TestState_ErrorReachableFromAnywhere(t *testing.T) {
	for _, s := range []State{StateEmpty, StateReserved, StateOccupied, StateUnlocking, StateOpen} {
		if !s.CanTransitionTo(StateError) {
			t.Errorf("%s -> error should be allowed", s)
		}
	}
}

func TestState_InvalidTransitions(t *testing.T) {
	cases := []struct{ from, to State }{
		{StateEmpty, StateOccupied},
		{StateEmpty, StateOpen},
		{StateOccupied, StateEmpty},
		{StateOccupied, StateOpen},
		{StateOpen, StateReserved},
		{StateOpen, StateUnlocking},
	}
	for _, c := range cases {
		if c.from.CanTransitionTo(c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestState_TransitionError(t *testing.T) {
	got, err := StateEmpty.Transition(StateOpen)
	if err == nil {
		t.Fatal("Transition should fail")
	}
	var inv *ErrInvalidTransition
	if !errors.As(err, &inv) {
		t.Fatalf("error type = %T", err)
	}
	if got != StateEmpty {
		t.Errorf("failed Transition returned %s, want unchanged %s", got, StateEmpty)
	}
}

func TestSlot_Validate(t *testing.T) {
	s := &Slot{TenantID: "t1", SiteID: "site1", ShelfID: "sh1", Index: 1, State: StateEmpty, Active: true}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	s.State = StateReserved
	if err := s.Validate(); err == nil {
		t.Error("reserved slot without order should fail validation")
	}
	s.OrderID = "o1"
	if err := s.Validate(); err != nil {
		t.Errorf("reserved slot with order: %v", err)
	}

	s.State = StateEmpty
	if err := s.Validate(); err == nil {
		t.Error("empty slot with order should fail validation")
	}
}
