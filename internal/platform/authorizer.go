// Package platform holds the delivery-platform integration points: the check
// that a courier is allowed to collect a specific order.
package platform

import (
	"context"

	orderdomain "locker-pickup-control-plane/backend/internal/order/domain"
	riderdomain "locker-pickup-control-plane/backend/internal/rider/domain"
)

// RiderGetter resolves a rider by id.
type RiderGetter interface {
	GetByID(ctx context.Context, id string) (*riderdomain.Rider, error)
}

// BoundRiderAuthorizer authorizes an unlock when the requesting rider is
// active, works for the order's platform, and matches the order's assigned
// rider when one is recorded. Internal orders accept any active rider.
type BoundRiderAuthorizer struct {
	riders RiderGetter
}

// NewBoundRiderAuthorizer returns the default platform authorizer.
func NewBoundRiderAuthorizer(riders RiderGetter) *BoundRiderAuthorizer {
	return &BoundRiderAuthorizer{riders: riders}
}

// AuthorizeUnlock implements the orchestrator's platform check.
func (a *BoundRiderAuthorizer) AuthorizeUnlock(ctx context.Context, o *orderdomain.Order, riderID string) (bool, error) {
	if o.RiderID != "" && o.RiderID != riderID {
		return false, nil
	}
	rider, err := a.riders.GetByID(ctx, riderID)
	if err != nil {
		return false, err
	}
	if rider == nil || !rider.Active || rider.TenantID != o.TenantID {
		return false, nil
	}
	if o.Platform != orderdomain.PlatformInternal && rider.Platform != string(o.Platform) {
		return false, nil
	}
	return true, nil
}
