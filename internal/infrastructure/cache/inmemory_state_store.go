package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// stateEntry represents a stored OAuth state with expiration
type stateEntry struct {
	state     *integration.OAuthState
	expiresAt time.Time
}

// InMemoryOAuthStateStore implements OAuthStateStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryOAuthStateStore struct {
	mu        sync.Mutex
	entries   map[string]stateEntry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryOAuthStateStore creates a new in-memory OAuth state store
// It starts a background goroutine to clean up expired entries
func NewInMemoryOAuthStateStore() *InMemoryOAuthStateStore {
	store := &InMemoryOAuthStateStore{
		entries:  make(map[string]stateEntry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Put stores a state with a TTL
func (s *InMemoryOAuthStateStore) Put(ctx context.Context, state *integration.OAuthState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[state.Token] = stateEntry{
		state:     state,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Consume fetches and deletes a state under a single lock, so a token can
// only be redeemed once
func (s *InMemoryOAuthStateStore) Consume(ctx context.Context, token string) (*integration.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[token]
	if !exists {
		return nil, integration.ErrOAuthStateNotFound
	}
	delete(s.entries, token)

	if time.Now().After(e.expiresAt) {
		return nil, integration.ErrOAuthStateExpired
	}
	return e.state, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryOAuthStateStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryOAuthStateStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryOAuthStateStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryOAuthStateStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for token, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, token)
		}
	}
}

// Ensure InMemoryOAuthStateStore implements OAuthStateStore
var _ integration.OAuthStateStore = (*InMemoryOAuthStateStore)(nil)
