package session

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store is the keyed session table shared by every Subject.
// Implementations must be safe for concurrent use and must not call back
// into the Manager while holding their own locks.
type Store interface {
	Put(ctx context.Context, s *Session) error
	// Get returns (nil, nil) when no session has the given ID.
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	// Touch marks the session as recently used for eviction ordering.
	Touch(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Session, error)
	Len() int
}

// DefaultMaxSessions bounds the in-memory table when no size is configured.
const DefaultMaxSessions = 10000

// MemoryStore is a bounded, in-process session table.
//
// When the table is full the least recently used session is evicted and
// marked invalid, so its handle reports SessionExpired from then on.
type MemoryStore struct {
	cache *lru.Cache[string, *Session]
}

// NewMemoryStore creates a table holding at most size sessions. onRemove,
// if set, is called once for every session leaving the table for any
// reason (delete, expiry or capacity eviction).
func NewMemoryStore(size int, onRemove func(*Session)) (*MemoryStore, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	cache, err := lru.NewWithEvict[string, *Session](size, func(_ string, s *Session) {
		s.markInvalid()
		if onRemove != nil {
			onRemove(s)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &MemoryStore{cache: cache}, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.cache.Add(s.id, s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (m *MemoryStore) Touch(_ context.Context, id string) error {
	m.cache.Get(id)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Session, error) {
	return m.cache.Values(), nil
}

func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
