package repository

import (
	"context"

	"locker-pickup-control-plane/backend/internal/user/domain"
)

// Repository persists staff users. Lookups return (nil, nil) when no row
// matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail looks up a user by tenant-scoped email. Emails are unique
	// per tenant, not globally.
	GetByEmail(ctx context.Context, tenantID, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
}
