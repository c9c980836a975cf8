package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/shared"
)

type entry struct {
	expiresAt time.Time
}

// InMemoryIdempotencyStore implements IdempotencyStore with an in-memory
// map. Suitable for single-instance deployments and testing; state is not
// shared across processes.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts a background
// goroutine that drops expired entries
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	store := &InMemoryIdempotencyStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

func mapKey(tenantID uuid.UUID, key string) string {
	return tenantID.String() + ":" + key
}

// Seen reports whether the tenant has already recorded the key
func (s *InMemoryIdempotencyStore) Seen(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[mapKey(tenantID, key)]
	if !exists || time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Record marks the key as seen for the tenant. Returns true if the key was
// newly recorded, false if a live entry already existed.
func (s *InMemoryIdempotencyStore) Record(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := mapKey(tenantID, key)
	if e, exists := s.entries[k]; exists && time.Now().Before(e.expiresAt) {
		return false, nil
	}

	s.entries[k] = entry{expiresAt: time.Now().Add(ttl)}
	return true, nil
}

// Release drops the tenant's entry for the key. Missing entries are ignored.
func (s *InMemoryIdempotencyStore) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, mapKey(tenantID, key))
	return nil
}

// Sweep removes expired entries and returns how many were dropped
func (s *InMemoryIdempotencyStore) Sweep(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var removed int64
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			_, _ = s.Sweep(context.Background())
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
