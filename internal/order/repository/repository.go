package repository

import (
	"context"

	"locker-pickup-control-plane/backend/internal/order/domain"
)

// Repository defines persistence for orders.
type Repository interface {
	// GetByID returns the order for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Create(ctx context.Context, o *domain.Order) error
	// Update persists all mutable fields. The order must exist.
	Update(ctx context.Context, o *domain.Order) error
	// ListByStatus returns orders for the tenant in the given status.
	ListByStatus(ctx context.Context, tenantID string, status domain.Status) ([]*domain.Order, error)
}
