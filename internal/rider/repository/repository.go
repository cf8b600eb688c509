package repository

import (
	"context"

	"locker-pickup-control-plane/backend/internal/rider/domain"
)

// Repository defines persistence for riders.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Rider, error)
	Create(ctx context.Context, r *domain.Rider) error
}
