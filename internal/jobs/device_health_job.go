package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"locker-pickup-control-plane/backend/internal/audit"
	auditdomain "locker-pickup-control-plane/backend/internal/audit/domain"
	"locker-pickup-control-plane/backend/internal/coordstore"
	slotrepo "locker-pickup-control-plane/backend/internal/slot/repository"
)

// ShelfLister enumerates the shelves to health-check.
type ShelfLister interface {
	ListShelves(ctx context.Context, tenantID string) ([]slotrepo.Shelf, error)
}

// StatusRequester dispatches a status_request command to a shelf controller.
type StatusRequester interface {
	RequestStatus(ctx context.Context, tenantID, siteID, shelfID string) error
}

type shelfHealth int

const (
	healthOK shelfHealth = iota
	healthMissing
	healthFaulted
)

// DeviceHealthJob watches controller status reports. A shelf whose ephemeral
// status record has expired gets a status_request; a shelf that stays silent
// for a second consecutive check is recorded as a device fault, once per
// outage.
type DeviceHealthJob struct {
	shelves   ShelfLister
	requester StatusRequester
	store     coordstore.Store
	keys      coordstore.Keys
	ledger    audit.Ledger
	tenants   []string
	cron      *cron.Cron

	mu    sync.Mutex
	state map[string]shelfHealth
}

// NewDeviceHealthJob returns the health-check job covering the given tenants.
func NewDeviceHealthJob(
	shelves ShelfLister,
	requester StatusRequester,
	store coordstore.Store,
	keys coordstore.Keys,
	ledger audit.Ledger,
	tenants []string,
) *DeviceHealthJob {
	return &DeviceHealthJob{
		shelves:   shelves,
		requester: requester,
		store:     store,
		keys:      keys,
		ledger:    ledger,
		tenants:   tenants,
		cron:      cron.New(cron.WithSeconds()),
		state:     make(map[string]shelfHealth),
	}
}

// Start schedules the health check every minute.
func (j *DeviceHealthJob) Start() error {
	_, err := j.cron.AddFunc("0 * * * * *", j.run)
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("jobs: device health check started (every 1m, %d tenants)", len(j.tenants))
	return nil
}

// Stop stops the health check.
func (j *DeviceHealthJob) Stop() {
	j.cron.Stop()
	log.Printf("jobs: device health check stopped")
}

func (j *DeviceHealthJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	for _, tenant := range j.tenants {
		shelves, err := j.shelves.ListShelves(ctx, tenant)
		if err != nil {
			log.Printf("jobs: device health tenant=%s: %v", tenant, err)
			continue
		}
		for _, shelf := range shelves {
			j.checkShelf(ctx, shelf)
		}
	}
}

func (j *DeviceHealthJob) checkShelf(ctx context.Context, shelf slotrepo.Shelf) {
	key := j.keys.DeviceStatus(shelf.TenantID, shelf.ShelfID)
	_, reported, err := j.store.Get(ctx, key)
	if err != nil {
		log.Printf("jobs: device health shelf=%s: %v", shelf.ShelfID, err)
		return
	}

	j.mu.Lock()
	prev := j.state[key]
	j.mu.Unlock()

	if reported {
		if prev != healthOK {
			log.Printf("jobs: shelf %s reporting again", shelf.ShelfID)
		}
		j.setState(key, healthOK)
		return
	}

	if err := j.requester.RequestStatus(ctx, shelf.TenantID, shelf.SiteID, shelf.ShelfID); err != nil {
		log.Printf("jobs: request status shelf=%s: %v", shelf.ShelfID, err)
	}

	switch prev {
	case healthOK:
		j.setState(key, healthMissing)
	case healthMissing:
		j.ledger.LogEvent(ctx, &auditdomain.SecurityEvent{
			Type:     auditdomain.EventDeviceFault,
			TenantID: shelf.TenantID,
			SiteID:   shelf.SiteID,
			ShelfID:  shelf.ShelfID,
			DeviceID: shelf.ShelfID,
			Metadata: map[string]string{"reason": "no status report for two consecutive checks"},
		})
		j.setState(key, healthFaulted)
	case healthFaulted:
		// fault already recorded for this outage
	}
}

func (j *DeviceHealthJob) setState(key string, h shelfHealth) {
	j.mu.Lock()
	j.state[key] = h
	j.mu.Unlock()
}
