package coordstore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a mutex-guarded in-process Store with the same atomicity
// contract as RedisStore. Suitable for single-node dev and tests; it does not
// coordinate across processes.
type MemoryStore struct {
	mu   sync.Mutex
	m    map[string]memEntry
	nowF func() time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]memEntry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// live returns the entry for key if present and not expired, pruning expired
// entries. Caller must hold mu.
func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.nowF()) {
		delete(s.m, key)
		return memEntry{}, false
	}
	return e, true
}

// Reserve sets key=value with ttl only if key is absent.
func (s *MemoryStore) Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.m[key] = memEntry{value: value, expiresAt: s.nowF().Add(ttl)}
	return true, nil
}

// Release deletes key only while it still holds value.
func (s *MemoryStore) Release(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(key); ok && e.value == value {
		delete(s.m, key)
	}
	return nil
}

// RegisterOnce creates the single-use marker with ttl.
func (s *MemoryStore) RegisterOnce(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return ErrAlreadyRegistered
	}
	s.m[key] = memEntry{value: "1", expiresAt: s.nowF().Add(ttl)}
	return nil
}

// ConsumeMatching deletes key only if it holds value, reporting whether this
// caller deleted it.
func (s *MemoryStore) ConsumeMatching(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(s.m, key)
	return true, nil
}

// ConsumeOnce removes the marker and reports whether it existed.
func (s *MemoryStore) ConsumeOnce(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); !ok {
		return false, nil
	}
	delete(s.m, key)
	return true, nil
}

// IncrWindow increments the sliding-window counter and returns the new count.
func (s *MemoryStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		s.m[key] = memEntry{value: "1", expiresAt: s.nowF().Add(window)}
		return 1, nil
	}
	n, _ := strconv.ParseInt(e.value, 10, 64)
	n++
	// keep the original window expiry
	s.m[key] = memEntry{value: strconv.FormatInt(n, 10), expiresAt: e.expiresAt}
	return n, nil
}

// Get returns the value for key and whether it exists.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores key=value with ttl.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = memEntry{value: value, expiresAt: s.nowF().Add(ttl)}
	return nil
}

// Del removes key.
func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error { return nil }

// SetNow overrides the clock. For tests only.
func (s *MemoryStore) SetNow(f func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowF = f
}
