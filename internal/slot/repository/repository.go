package repository

import (
	"context"

	"locker-pickup-control-plane/backend/internal/slot/domain"
)

// Shelf is one physical shelf location, derived from the slot inventory.
type Shelf struct {
	TenantID string
	SiteID   string
	ShelfID  string
}

// Repository defines persistence for slots.
type Repository interface {
	// GetByID returns the slot for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Slot, error)
	Create(ctx context.Context, s *domain.Slot) error
	// Update persists all mutable fields. The slot must exist.
	Update(ctx context.Context, s *domain.Slot) error
	// ListEmptyBySite returns the tenant's empty, active slots at the site
	// ordered by shelf then physical index, so selection is deterministic.
	ListEmptyBySite(ctx context.Context, tenantID, siteID string) ([]*domain.Slot, error)
	// ListByState returns the tenant's slots in the given state (sweeps).
	ListByState(ctx context.Context, tenantID string, state domain.State) ([]*domain.Slot, error)
	// ListShelves returns the distinct shelves carrying active slots.
	ListShelves(ctx context.Context, tenantID string) ([]Shelf, error)
}
