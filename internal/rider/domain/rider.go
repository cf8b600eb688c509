package domain

import (
	"errors"
	"time"
)

// Rider is a courier who collects parcels on behalf of a platform.
type Rider struct {
	ID          string
	TenantID    string
	Platform    string // platform the rider works for (e.g. "talabat")
	ExternalRef string // platform-side rider reference
	Name        string
	Phone       string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate validates the rider for persistence.
func (r *Rider) Validate() error {
	if r.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	if r.Platform == "" {
		return errors.New("platform is required")
	}
	return nil
}
