package repository

import (
	"context"
	"time"

	"locker-pickup-control-plane/backend/internal/audit/domain"
)

// Filter narrows security-event queries for incident review. Zero values are
// ignored.
type Filter struct {
	TenantID string
	SiteID   string
	Type     domain.EventType
	From     time.Time
	To       time.Time
	Limit    int32
	Offset   int32
}

// Repository defines persistence for security events.
type Repository interface {
	Create(ctx context.Context, e *domain.SecurityEvent) error
	List(ctx context.Context, f Filter) ([]*domain.SecurityEvent, error)
	// DeleteOlderThan removes events created before cutoff and returns the
	// number removed. Used only by the retention sweep.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
