package session

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/terraconstructs/gridguard/internal/auth"
)

// Session is a handle to one entry of the session table. All state is
// guarded by the per-session mutex; independent sessions never contend.
//
// Attribute access goes through the owning Manager so expiry is checked
// and the idle clock reset on every read and write.
type Session struct {
	id        string
	manager   *Manager
	createdAt time.Time

	mu         sync.Mutex
	identity   *auth.Identity
	attributes map[string]any
	lastAccess time.Time
	timeout    time.Duration
	// absolute sessions (remember-me) expire at deadline regardless of use.
	absolute bool
	deadline time.Time

	invalid atomic.Bool
	expired atomic.Bool
}

func newSession(m *Manager, id string, now time.Time, timeout time.Duration) *Session {
	return &Session{
		id:         id,
		manager:    m,
		createdAt:  now,
		attributes: make(map[string]any),
		lastAccess: now,
		timeout:    timeout,
	}
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Identity returns the bound identity, or nil for an unauthenticated session.
func (s *Session) Identity() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Timeout returns the session's current timeout: the idle timeout, or the
// absolute remember-me lifetime once extended.
func (s *Session) Timeout() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeout
}

// IsRemembered reports whether the session was extended by remember-me.
func (s *Session) IsRemembered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absolute
}

// IsValid reports whether the handle has not been invalidated or evicted.
// It does not evaluate expiry; use Manager.Alive or Manager.Touch for that.
func (s *Session) IsValid() bool {
	return !s.invalid.Load()
}

// SetAttribute stores value under key.
func (s *Session) SetAttribute(ctx context.Context, key string, value any) error {
	return s.manager.SetAttribute(ctx, s, key, value)
}

// Attribute returns the value stored under key.
func (s *Session) Attribute(ctx context.Context, key string) (any, bool, error) {
	return s.manager.Attribute(ctx, s, key)
}

// RemoveAttribute deletes key and returns its previous value.
func (s *Session) RemoveAttribute(ctx context.Context, key string) (any, bool, error) {
	return s.manager.RemoveAttribute(ctx, s, key)
}

// AttributeKeys lists the stored keys, sorted.
func (s *Session) AttributeKeys(ctx context.Context) ([]string, error) {
	return s.manager.AttributeKeys(ctx, s)
}

// Touch resets the idle clock.
func (s *Session) Touch(ctx context.Context) error {
	return s.manager.Touch(ctx, s)
}

// Get reads a typed attribute. A stored value of another type fails with
// KindTypeMismatch; a missing key returns the zero value and false.
func Get[T any](ctx context.Context, s *Session, key string) (T, bool, error) {
	var zero T
	raw, ok, err := s.Attribute(ctx, key)
	if err != nil || !ok {
		return zero, ok, err
	}
	v, ok := raw.(T)
	if !ok {
		return zero, false, auth.NewError(auth.KindTypeMismatch, "session.get", "", typeMismatch{key: key, got: raw, want: zero})
	}
	return v, true, nil
}

// expiredAt must be called with mu held.
func (s *Session) expiredAt(now time.Time) bool {
	if s.absolute {
		return !now.Before(s.deadline)
	}
	return s.timeout > 0 && !now.Before(s.lastAccess.Add(s.timeout))
}

// expire must be called with mu held. It returns the bound principal.
func (s *Session) expire() string {
	s.expired.Store(true)
	s.invalid.Store(true)
	return s.identity.Principal()
}

func (s *Session) markInvalid() {
	s.invalid.Store(true)
}

func (s *Session) sortedKeys() []string {
	keys := make([]string, 0, len(s.attributes))
	for k := range s.attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
