package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// EventPruner removes security events older than the cutoff.
type EventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRetentionJob removes security events past the retention period.
type AuditRetentionJob struct {
	pruner    EventPruner
	retention time.Duration
	cron      *cron.Cron
}

// NewAuditRetentionJob returns the retention job keeping events for
// retentionDays.
func NewAuditRetentionJob(pruner EventPruner, retentionDays int) *AuditRetentionJob {
	return &AuditRetentionJob{
		pruner:    pruner,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		cron:      cron.New(cron.WithSeconds()),
	}
}

// Start schedules the sweep daily at 03:10 server time.
func (j *AuditRetentionJob) Start() error {
	_, err := j.cron.AddFunc("0 10 3 * * *", j.run)
	if err != nil {
		return err
	}
	j.cron.Start()
	log.Printf("jobs: audit retention started (daily, keep %s)", j.retention)
	return nil
}

// Stop stops the retention job.
func (j *AuditRetentionJob) Stop() {
	j.cron.Stop()
	log.Printf("jobs: audit retention stopped")
}

func (j *AuditRetentionJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-j.retention)
	removed, err := j.pruner.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("jobs: audit retention sweep: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("jobs: audit retention removed %d events before %s", removed, cutoff.Format(time.RFC3339))
	}
}
