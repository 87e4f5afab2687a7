package credential

import (
	"context"
	"sync"
	"time"
)

// MemoryStore holds the credential in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	cookie *Cookie
	now    func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context) (Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cookie == nil {
		return Cookie{}, ErrNotFound
	}
	if s.cookie.Expired(s.now()) {
		s.cookie = nil
		return Cookie{}, ErrNotFound
	}
	return *s.cookie, nil
}

// Set implements Store.
func (s *MemoryStore) Set(ctx context.Context, c Cookie) error {
	s.mu.Lock()
	s.cookie = &c
	s.mu.Unlock()
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	s.cookie = nil
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
