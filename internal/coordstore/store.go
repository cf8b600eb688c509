// Package coordstore wraps the shared coordination store (Redis in production,
// in-process for dev and tests) behind four atomic primitives: conditional
// reservation, single-use markers, sliding-window counters, and ephemeral KV.
// All cross-process mutual exclusion in the system goes through this package.
package coordstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyRegistered is returned by RegisterOnce when the marker already exists.
	ErrAlreadyRegistered = errors.New("key already registered")
)

// Store is the coordination-store contract. Every method is atomic with
// respect to arbitrary concurrent callers from multiple processes; none is
// emulated with a non-atomic read-then-write.
type Store interface {
	// Reserve sets key=value with ttl only if key is currently absent.
	// Returns true when this caller won the reservation.
	Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Release deletes key only if it still holds value, so a later holder's
	// reservation is never released by a stale caller.
	Release(ctx context.Context, key, value string) error
	// RegisterOnce creates a single-use marker with ttl. Returns
	// ErrAlreadyRegistered if the marker exists.
	RegisterOnce(ctx context.Context, key string, ttl time.Duration) error
	// ConsumeOnce destroys the marker and reports whether it existed.
	// A second call for the same key always returns false.
	ConsumeOnce(ctx context.Context, key string) (bool, error)
	// ConsumeMatching deletes key only if it currently holds value, reporting
	// whether this caller performed the delete. At most one of any number of
	// concurrent callers presenting the matching value sees true; a
	// non-matching value leaves the key in place.
	ConsumeMatching(ctx context.Context, key, value string) (bool, error)
	// IncrWindow increments a sliding-window counter, setting the window
	// expiry on the first increment, and returns the new count.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)

	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores key=value with ttl, overwriting any existing value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Close releases the underlying connection. Safe to call multiple times.
	Close() error
}
