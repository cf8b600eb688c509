package domain

import (
	"errors"
	"time"
)

// Platform identifies the external delivery platform an order came from.
type Platform string

const (
	PlatformTalabat   Platform = "talabat"
	PlatformCareem    Platform = "careem"
	PlatformDeliveroo Platform = "deliveroo"
	PlatformInternal  Platform = "internal"
)

// Order is one delivery awaiting pickup. Mutated exclusively by the
// orchestrator; persisted by the durable store.
type Order struct {
	ID          string
	TenantID    string
	SiteID      string
	ExternalRef string // platform-side order reference
	Platform    Platform
	RiderID     string // assigned courier; empty until assignment
	SlotID      string // bound slot; empty until assignment
	Status      Status
	AssignedAt  *time.Time
	PickedUpAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the order for persistence.
func (o *Order) Validate() error {
	if o.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if o.SiteID == "" {
		return errors.New("site_id is required")
	}
	if o.Status == "" {
		o.Status = StatusCreated
	}
	if !o.Status.Valid() {
		return errors.New("invalid order status")
	}
	return nil
}
