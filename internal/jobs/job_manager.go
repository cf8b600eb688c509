package jobs

import "fmt"

// Manager coordinates the scheduled jobs: start them together, stop them
// together on shutdown.
type Manager struct {
	sweep     *ReservationSweepJob
	retention *AuditRetentionJob
	health    *DeviceHealthJob
}

// NewManager wires the three scheduled jobs. health may be nil when no device
// channel is configured.
func NewManager(sweep *ReservationSweepJob, retention *AuditRetentionJob, health *DeviceHealthJob) *Manager {
	return &Manager{sweep: sweep, retention: retention, health: health}
}

// StartAll starts every job; on failure the already started jobs are stopped.
func (m *Manager) StartAll() error {
	if err := m.sweep.Start(); err != nil {
		return fmt.Errorf("start reservation sweep: %w", err)
	}
	if err := m.retention.Start(); err != nil {
		m.sweep.Stop()
		return fmt.Errorf("start audit retention: %w", err)
	}
	if m.health != nil {
		if err := m.health.Start(); err != nil {
			m.retention.Stop()
			m.sweep.Stop()
			return fmt.Errorf("start device health check: %w", err)
		}
	}
	return nil
}

// StopAll stops every job gracefully.
func (m *Manager) StopAll() {
	if m.health != nil {
		m.health.Stop()
	}
	m.retention.Stop()
	m.sweep.Stop()
}
