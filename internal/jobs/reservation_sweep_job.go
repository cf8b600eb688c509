// Package jobs runs the scheduled background work: reservation
// reconciliation, collected-slot resets, audit retention, and device health
// checks. Every job is safe to run concurrently with foreground requests.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler is the orchestrator surface the sweep needs.
type Reconciler interface {
	ReconcileReservations(ctx context.Context, tenantID string) (int, error)
	ResetCollectedSlots(ctx context.Context, tenantID string) (int, error)
}

// ReservationSweepJob periodically releases lapsed reservations and resets
// collected slots, per tenant.
type ReservationSweepJob struct {
	reconciler Reconciler
	tenants    []string
	cron       *cron.Cron
}

// NewReservationSweepJob returns the sweep job covering the given tenants.
func NewReservationSweepJob(reconciler Reconciler, tenants []string) *ReservationSweepJob {
	return &ReservationSweepJob{
		reconciler: reconciler,
		tenants:    tenants,
		cron:       cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep every 30 seconds.
func (j *ReservationSweepJob) Start() error {
	_, err := j.cron.AddFunc("*/30 * * * * *", j.run)
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("jobs: reservation sweep started (every 30s, %d tenants)", len(j.tenants))
	return nil
}

// Stop stops the sweep. A running iteration finishes.
func (j *ReservationSweepJob) Stop() {
	j.cron.Stop()
	log.Printf("jobs: reservation sweep stopped")
}

func (j *ReservationSweepJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	for _, tenant := range j.tenants {
		swept, err := j.reconciler.ReconcileReservations(ctx, tenant)
		if err != nil {
			log.Printf("jobs: reservation sweep tenant=%s: %v", tenant, err)
		} else if swept > 0 {
			log.Printf("jobs: reservation sweep tenant=%s released %d slots", tenant, swept)
		}
		reset, err := j.reconciler.ResetCollectedSlots(ctx, tenant)
		if err != nil {
			log.Printf("jobs: slot reset sweep tenant=%s: %v", tenant, err)
		} else if reset > 0 {
			log.Printf("jobs: slot reset sweep tenant=%s reset %d slots", tenant, reset)
		}
	}
}
