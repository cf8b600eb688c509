package domain

import (
	"errors"
	"testing"
)

func TestStatus_ForwardPath(t *testing.T) {
	path := []Status{StatusCreated, StatusPrepared, StatusAssigned, StatusPickedUp, StatusComplete}
	for i := 0; i < len(path)-1; i++ {
		if !path[i].CanTransitionTo(path[i+1]) {
			t.Errorf("%s -> %s should be allowed", path[i], path[i+1])
		}
	}
}

func TestStatus_NoSkipping(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusCreated, StatusAssigned},
		{StatusCreated, StatusPickedUp},
		{StatusPrepared, StatusPickedUp},
		{StatusPrepared, StatusComplete},
		{StatusAssigned, StatusComplete},
		{StatusPickedUp, StatusAssigned},
		{StatusAssigned, StatusPrepared},
	}
	for _, c := range cases {
		if c.from.CanTransitionTo(c.to) {
			t.Errorf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestStatus_CancelledFromNonTerminal(t *testing.T) {
	for _, s := range []Status{StatusCreated, StatusPrepared, StatusAssigned, StatusPickedUp} {
		if !s.CanTransitionTo(StatusCancelled) {
			t.Errorf("%s -> cancelled should be allowed", s)
		}
	}
}

func TestStatus_TerminalNeverTransitions(t *testing.T) {
	for _, s := range []Status{StatusComplete, StatusCancelled} {
		for _, next := range []Status{StatusCreated, StatusPrepared, StatusAssigned, StatusPickedUp, StatusComplete, StatusCancelled} {
			if s.CanTransitionTo(next) {
				t.Errorf("terminal %s -> %s should be rejected", s, next)
			}
		}
	}
}

func TestStatus_TransitionError(t *testing.T) {
	got, err := StatusCreated.Transition(StatusPickedUp)
	if err == nil {
		t.Fatal("Transition should fail")
	}
	var inv *ErrInvalidTransition
	if !errors.As(err, &inv) {
		t.Fatalf("error type = %T", err)
	}
	if got != StatusCreated {
		t.Errorf("failed Transition returned %s, want unchanged %s", got, StatusCreated)
	}
}

func TestOrder_Validate(t *testing.T) {
	o := &Order{TenantID: "t1", SiteID: "site1"}
	if err := o.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if o.Status != StatusCreated {
		t.Errorf("default status = %s, want created", o.Status)
	}
	if err := (&Order{SiteID: "site1"}).Validate(); err == nil {
		t.Error("Validate should require tenant_id")
	}
}
