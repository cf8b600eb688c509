// Package audit is the append-only ledger of security-relevant transitions.
// Writes are best-effort from the caller's point of view: a ledger failure is
// logged and surfaced to operators, never back into the business workflow.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"locker-pickup-control-plane/backend/internal/audit/domain"
	auditrepo "locker-pickup-control-plane/backend/internal/audit/repository"
	"locker-pickup-control-plane/backend/internal/audit/stream"
)

// Ledger records security events. LogEvent assigns the identifier and
// timestamp; callers fill in type, scope identifiers, and metadata.
type Ledger interface {
	// LogEvent appends the event and returns its assigned id. Best-effort:
	// failures are logged and an empty id is returned.
	LogEvent(ctx context.Context, e *domain.SecurityEvent) string
}

// Querier exposes the ledger's incident-review surface.
type Querier interface {
	List(ctx context.Context, f auditrepo.Filter) ([]*domain.SecurityEvent, error)
}

// Writer implements Ledger over the repository, mirroring each event to the
// downstream stream when one is configured.
type Writer struct {
	repo     auditrepo.Repository
	producer stream.Producer
}

// NewWriter returns a Ledger that persists to repo. producer may be nil; then
// events are not mirrored.
func NewWriter(repo auditrepo.Repository, producer stream.Producer) *Writer {
	return &Writer{repo: repo, producer: producer}
}

// LogEvent appends one security event. Never returns an error into the
// calling workflow; persistence failures are logged.
func (w *Writer) LogEvent(ctx context.Context, e *domain.SecurityEvent) string {
	if w == nil || w.repo == nil || e == nil {
		return ""
	}
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()
	if err := w.repo.Create(ctx, e); err != nil {
		log.Printf("audit: failed to log event %s (tenant %s): %v", e.Type, e.TenantID, err)
		return ""
	}
	stream.EmitAsync(w.producer, e)
	return e.ID
}

// List returns events matching the filter for incident review.
func (w *Writer) List(ctx context.Context, f auditrepo.Filter) ([]*domain.SecurityEvent, error) {
	return w.repo.List(ctx, f)
}
