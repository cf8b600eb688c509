package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"locker-pickup-control-plane/backend/internal/audit/domain"
	auditrepo "locker-pickup-control-plane/backend/internal/audit/repository"
)

// mockEventRepo implements the audit repository interface for tests.
type mockEventRepo struct {
	entries   []*domain.SecurityEvent
	createErr error
}

func (m *mockEventRepo) Create(ctx context.Context, e *domain.SecurityEvent) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockEventRepo) List(ctx context.Context, f auditrepo.Filter) ([]*domain.SecurityEvent, error) {
	return m.entries, nil
}

func (m *mockEventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func TestWriter_LogEvent_AssignsIDAndTimestamp(t *testing.T) {
	repo := &mockEventRepo{}
	w := NewWriter(repo, nil)

	id := w.LogEvent(context.Background(), &domain.SecurityEvent{
		Type:     domain.EventSlotAssigned,
		TenantID: "t1",
		SlotID:   "s1",
		OrderID:  "o1",
		Metadata: map[string]string{"shelf_index": "3"},
	})

	if id == "" {
		t.Fatal("LogEvent returned empty id")
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.ID != id {
		t.Errorf("stored id = %q, want %q", e.ID, id)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if e.Type != domain.EventSlotAssigned || e.TenantID != "t1" {
		t.Errorf("event = %+v", e)
	}
}

func TestWriter_LogEvent_RepoFailureDoesNotPropagate(t *testing.T) {
	repo := &mockEventRepo{createErr: errors.New("db down")}
	w := NewWriter(repo, nil)

	id := w.LogEvent(context.Background(), &domain.SecurityEvent{Type: domain.EventUnlockFailed, TenantID: "t1"})
	if id != "" {
		t.Errorf("LogEvent on failure should return empty id, got %q", id)
	}
}

func TestWriter_LogEvent_NilEvent(t *testing.T) {
	w := NewWriter(&mockEventRepo{}, nil)
	if id := w.LogEvent(context.Background(), nil); id != "" {
		t.Errorf("LogEvent(nil) = %q, want empty", id)
	}
}
