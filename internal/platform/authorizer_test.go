package platform

import (
	"context"
	"testing"

	orderdomain "locker-pickup-control-plane/backend/internal/order/domain"
	riderdomain "locker-pickup-control-plane/backend/internal/rider/domain"
)

type mapRiderGetter map[string]*riderdomain.Rider

func (m mapRiderGetter) GetByID(_ context.Context, id string) (*riderdomain.Rider, error) {
	return m[id], nil
}

func TestAuthorizeUnlock(t *testing.T) {
	riders := mapRiderGetter{
		"r1": {ID: "r1", TenantID: "t1", Platform: "talabat", Active: true},
		"r2": {ID: "r2", TenantID: "t1", Platform: "careem", Active: true},
		"r3": {ID: "r3", TenantID: "t1", Platform: "talabat", Active: false},
		"r4": {ID: "r4", TenantID: "t2", Platform: "talabat", Active: true},
	}
	auth := NewBoundRiderAuthorizer(riders)

	tests := []struct {
		name    string
		order   *orderdomain.Order
		riderID string
		want    bool
	}{
		{"matching platform rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat}, "r1", true},
		{"wrong platform", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat}, "r2", false},
		{"inactive rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat}, "r3", false},
		{"cross tenant", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat}, "r4", false},
		{"unknown rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat}, "missing", false},
		{"bound to another rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat, RiderID: "r9"}, "r1", false},
		{"bound to same rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformTalabat, RiderID: "r1"}, "r1", true},
		{"internal order any active rider", &orderdomain.Order{TenantID: "t1", Platform: orderdomain.PlatformInternal}, "r2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.AuthorizeUnlock(context.Background(), tt.order, tt.riderID)
			if err != nil {
				t.Fatalf("AuthorizeUnlock() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("AuthorizeUnlock() = %v, want %v", got, tt.want)
			}
		})
	}
}
