package domain

import (
	"errors"
	"time"
)

// Slot is one physical lockable cubby on a shelf.
type Slot struct {
	ID           string
	ShelfID      string
	SiteID       string
	TenantID     string
	Index        int // physical position, 1..N per shelf
	State        State
	OrderID      string // bound order; empty only in empty/error states
	ReservedAt   *time.Time
	OccupiedAt   *time.Time
	LastUnlockAt *time.Time
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the slot's structural invariants: a slot in a non-empty,
// non-error state must reference exactly one order, an empty slot must not.
func (s *Slot) Validate() error {
	if s.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if s.ShelfID == "" || s.SiteID == "" {
		return errors.New("shelf_id and site_id are required")
	}
	if s.Index < 1 {
		return errors.New("index must be >= 1")
	}
	if !s.State.Valid() {
		return errors.New("invalid slot state")
	}
	switch s.State {
	case StateEmpty:
		if s.OrderID != "" {
			return errors.New("empty slot must not reference an order")
		}
	case StateError:
		// an errored slot may or may not hold an order
	default:
		if s.OrderID == "" {
			return errors.New("non-empty slot must reference an order")
		}
	}
	return nil
}
