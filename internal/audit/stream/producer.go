// Package stream mirrors security events to downstream audit consumers (e.g. Kafka).
package stream

import (
	"context"

	"locker-pickup-control-plane/backend/internal/audit/domain"
)

// Producer emits security events to the downstream stream. Callers use it
// best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single security event. Implementations may block briefly;
	// call via EmitAsync from business paths.
	Emit(ctx context.Context, event *domain.SecurityEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
