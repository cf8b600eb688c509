package jobs

import (
	"context"
	"testing"
	"time"
)

type countReconciler struct {
	reconciled []string
	reset      []string
}

func (r *countReconciler) ReconcileReservations(_ context.Context, tenantID string) (int, error) {
	r.reconciled = append(r.reconciled, tenantID)
	return 1, nil
}

func (r *countReconciler) ResetCollectedSlots(_ context.Context, tenantID string) (int, error) {
	r.reset = append(r.reset, tenantID)
	return 0, nil
}

func TestReservationSweepCoversAllTenants(t *testing.T) {
	rec := &countReconciler{}
	job := NewReservationSweepJob(rec, []string{"t1", "t2"})

	job.run()

	if len(rec.reconciled) != 2 || rec.reconciled[0] != "t1" || rec.reconciled[1] != "t2" {
		t.Errorf("reconciled tenants = %v, want [t1 t2]", rec.reconciled)
	}
	if len(rec.reset) != 2 {
		t.Errorf("reset sweeps = %d, want 2", len(rec.reset))
	}
}

type countPruner struct {
	cutoffs []time.Time
}

func (p *countPruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 3, nil
}

func TestAuditRetentionCutoff(t *testing.T) {
	pruner := &countPruner{}
	job := NewAuditRetentionJob(pruner, 90)

	job.run()

	if len(pruner.cutoffs) != 1 {
		t.Fatalf("prune calls = %d, want 1", len(pruner.cutoffs))
	}
	wantAround := time.Now().UTC().Add(-90 * 24 * time.Hour)
	if diff := pruner.cutoffs[0].Sub(wantAround); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %s, want ~%s", pruner.cutoffs[0], wantAround)
	}
}
