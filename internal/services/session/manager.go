package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/telemetry"
)

const (
	// DefaultIdleTimeout expires sessions that have not been used for 30 minutes.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultRememberMeTimeout is the absolute lifetime of a remember-me session.
	DefaultRememberMeTimeout = 14 * 24 * time.Hour
)

// Config controls session expiry.
type Config struct {
	IdleTimeout       time.Duration
	RememberMeTimeout time.Duration
	MaxSessions       int
}

// Dependencies are the Manager's collaborators. Every field is optional.
type Dependencies struct {
	// Store defaults to a MemoryStore sized by Config.MaxSessions.
	Store   Store
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// Manager creates, looks up and mutates sessions.
//
// Expiry is evaluated lazily: an operation on an expired session fails with
// KindSessionExpired and evicts it. Sweep and RunSweeper only reclaim
// memory; correctness never depends on them.
type Manager struct {
	store             Store
	clock             clock.Clock
	logger            *slog.Logger
	metrics           *telemetry.Metrics
	idleTimeout       time.Duration
	rememberMeTimeout time.Duration
}

// NewManager builds a Manager, filling defaults for zero-valued settings.
func NewManager(cfg Config, deps Dependencies) (*Manager, error) {
	m := &Manager{
		store:             deps.Store,
		clock:             deps.Clock,
		logger:            deps.Logger,
		metrics:           deps.Metrics,
		idleTimeout:       cfg.IdleTimeout,
		rememberMeTimeout: cfg.RememberMeTimeout,
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = DefaultIdleTimeout
	}
	if m.rememberMeTimeout <= 0 {
		m.rememberMeTimeout = DefaultRememberMeTimeout
	}
	if m.rememberMeTimeout < m.idleTimeout {
		return nil, fmt.Errorf("remember-me timeout %s is shorter than idle timeout %s", m.rememberMeTimeout, m.idleTimeout)
	}
	if m.clock == nil {
		m.clock = clock.New()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.store == nil {
		store, err := NewMemoryStore(cfg.MaxSessions, m.onRemove)
		if err != nil {
			return nil, err
		}
		m.store = store
	}
	return m, nil
}

// IdleTimeout returns the configured idle timeout.
func (m *Manager) IdleTimeout() time.Duration { return m.idleTimeout }

// RememberMeTimeout returns the configured absolute remember-me lifetime.
func (m *Manager) RememberMeTimeout() time.Duration { return m.rememberMeTimeout }

// Len returns the number of sessions currently held.
func (m *Manager) Len() int { return m.store.Len() }

// Create allocates a session. identity may be nil for an unauthenticated
// session; rememberMe only takes effect together with an identity.
func (m *Manager) Create(ctx context.Context, identity *auth.Identity, rememberMe bool) (*Session, error) {
	const op = "session.create"
	if err := auth.CheckContext(ctx, op); err != nil {
		return nil, err
	}

	id, err := GenerateID()
	if err != nil {
		return nil, auth.NewError(auth.KindOther, op, "", err)
	}

	now := m.clock.Now()
	s := newSession(m, id, now, m.idleTimeout)
	if identity != nil {
		s.identity = identity
		if rememberMe {
			m.extend(s, now)
		}
	}

	if err := m.store.Put(ctx, s); err != nil {
		return nil, auth.StorageError(op, identity.Principal(), err)
	}

	m.metrics.SessionStarted(ctx, s.absolute)
	m.logger.Debug("session created",
		"session", shortID(id),
		"principal", identity.Principal(),
		"remembered", s.absolute,
	)
	return s, nil
}

// Get looks a session up by ID and touches it. Unknown IDs are reported as
// expired: the caller cannot tell an evicted session from a forged one.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	const op = "session.get"
	if err := auth.CheckContext(ctx, op); err != nil {
		return nil, err
	}

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, auth.StorageError(op, "", err)
	}
	if s == nil {
		return nil, auth.NewError(auth.KindSessionExpired, op, "", nil)
	}
	if err := m.access(ctx, s, op, func() error { return nil }); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind attaches a verified identity to an existing session, keeping its
// attributes. With rememberMe the session switches to the absolute
// remember-me lifetime. A session already bound to a different principal
// is left untouched and ErrPrincipalMismatch is returned as the cause.
func (m *Manager) Bind(ctx context.Context, s *Session, identity *auth.Identity, rememberMe bool) error {
	const op = "session.bind"
	if identity == nil {
		return auth.NewError(auth.KindOther, op, "", fmt.Errorf("identity is required"))
	}
	return m.access(ctx, s, op, func() error {
		if s.identity != nil && s.identity.Principal() != identity.Principal() {
			return auth.NewError(auth.KindOther, op, identity.Principal(), ErrPrincipalMismatch)
		}
		s.identity = identity
		if rememberMe {
			m.extend(s, m.clock.Now())
		}
		return nil
	})
}

// SetAttribute stores value under key.
func (m *Manager) SetAttribute(ctx context.Context, s *Session, key string, value any) error {
	return m.access(ctx, s, "session.set_attribute", func() error {
		s.attributes[key] = value
		return nil
	})
}

// Attribute returns the value stored under key.
func (m *Manager) Attribute(ctx context.Context, s *Session, key string) (any, bool, error) {
	var (
		value any
		found bool
	)
	err := m.access(ctx, s, "session.get_attribute", func() error {
		value, found = s.attributes[key]
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// RemoveAttribute deletes key, returning the previous value.
func (m *Manager) RemoveAttribute(ctx context.Context, s *Session, key string) (any, bool, error) {
	var (
		value any
		found bool
	)
	err := m.access(ctx, s, "session.remove_attribute", func() error {
		value, found = s.attributes[key]
		delete(s.attributes, key)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, found, nil
}

// AttributeKeys lists the stored keys, sorted.
func (m *Manager) AttributeKeys(ctx context.Context, s *Session) ([]string, error) {
	var keys []string
	err := m.access(ctx, s, "session.attribute_keys", func() error {
		keys = s.sortedKeys()
		return nil
	})
	return keys, err
}

// Touch resets the idle clock.
func (m *Manager) Touch(ctx context.Context, s *Session) error {
	return m.access(ctx, s, "session.touch", func() error { return nil })
}

// Alive reports whether s can still be used, evaluating expiry without
// resetting the idle clock. An expired session is evicted.
func (m *Manager) Alive(s *Session) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	if s.invalid.Load() {
		s.mu.Unlock()
		return false
	}
	if !s.expiredAt(m.clock.Now()) {
		s.mu.Unlock()
		return true
	}
	principal := s.expire()
	s.mu.Unlock()

	m.evict(context.Background(), s, principal)
	return false
}

// Invalidate destroys the session. Later operations on the handle fail
// with KindSessionExpired. Invalidating twice is not an error.
func (m *Manager) Invalidate(ctx context.Context, s *Session) error {
	const op = "session.invalidate"
	if err := auth.CheckContext(ctx, op); err != nil {
		return err
	}

	s.mu.Lock()
	already := s.invalid.Swap(true)
	s.attributes = make(map[string]any)
	principal := s.identity.Principal()
	s.mu.Unlock()

	if already {
		return nil
	}

	if err := m.store.Delete(ctx, s.id); err != nil {
		return auth.StorageError(op, principal, err)
	}
	m.logger.Debug("session invalidated", "session", shortID(s.id), "principal", principal)
	return nil
}

// Sweep evicts every expired session and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	const op = "session.sweep"
	sessions, err := m.store.List(ctx)
	if err != nil {
		return 0, auth.StorageError(op, "", err)
	}

	now := m.clock.Now()
	removed := 0
	for _, s := range sessions {
		if err := auth.CheckContext(ctx, op); err != nil {
			return removed, err
		}
		s.mu.Lock()
		expired := !s.invalid.Load() && s.expiredAt(now)
		if expired {
			s.expire()
		}
		s.mu.Unlock()

		if !expired {
			continue
		}
		if err := m.store.Delete(ctx, s.id); err != nil {
			return removed, auth.StorageError(op, "", err)
		}
		removed++
	}

	if removed > 0 {
		m.logger.Debug("swept expired sessions", "removed", removed, "remaining", m.store.Len())
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := m.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil && auth.KindOf(err) != auth.KindTimeout {
				m.logger.Warn("session sweep failed", "error", err)
			}
		}
	}
}

// access runs fn under the session lock after checking the context,
// validity and expiry, then records the access time. Store I/O happens
// after the lock is released.
func (m *Manager) access(ctx context.Context, s *Session, op string, fn func() error) error {
	if err := auth.CheckContext(ctx, op); err != nil {
		return err
	}
	if s == nil {
		return auth.NewError(auth.KindSessionExpired, op, "", fmt.Errorf("no session"))
	}

	s.mu.Lock()
	if s.invalid.Load() {
		s.mu.Unlock()
		return auth.NewError(auth.KindSessionExpired, op, "", nil)
	}

	now := m.clock.Now()
	if s.expiredAt(now) {
		principal := s.expire()
		s.mu.Unlock()

		m.evict(ctx, s, principal)
		return auth.NewError(auth.KindSessionExpired, op, principal, nil)
	}

	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lastAccess = now
	s.mu.Unlock()

	if err := m.store.Touch(ctx, s.id); err != nil {
		m.logger.Warn("failed to refresh session recency", "session", shortID(s.id), "error", err)
	}
	return nil
}

func (m *Manager) evict(ctx context.Context, s *Session, principal string) {
	if err := m.store.Delete(ctx, s.id); err != nil {
		m.logger.Warn("failed to evict expired session", "session", shortID(s.id), "error", err)
	}
	m.logger.Debug("session expired", "session", shortID(s.id), "principal", principal)
}

// extend must be called with s.mu held (or before s is shared).
func (m *Manager) extend(s *Session, from time.Time) {
	s.absolute = true
	s.timeout = m.rememberMeTimeout
	s.deadline = from.Add(m.rememberMeTimeout)
}

func (m *Manager) onRemove(s *Session) {
	m.metrics.SessionRemoved(context.Background(), s.expired.Load())
}
