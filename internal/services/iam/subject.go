package iam

import (
	"context"
	"errors"
	"sync"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/services/session"
)

// Subject is the per-caller facade: at most one Identity, at most one
// Session. It is meant for one logical caller; the mutex only keeps a
// careless caller from corrupting it.
//
// Authentication lasts as long as the session does. Once the session
// expires or is evicted the Subject is unauthenticated again.
type Subject struct {
	sm *SecurityManager

	mu       sync.Mutex
	identity *auth.Identity
	session  *session.Session
}

// Login authenticates token and binds the identity to the current session,
// keeping its attributes, or to a new one. A session that belongs to a
// different principal is invalidated and replaced, so attributes never
// carry over between users. When authentication fails the Subject is left
// exactly as it was and the *auth.Error is returned unchanged.
func (s *Subject) Login(ctx context.Context, token auth.AuthenticationToken) error {
	identity, err := s.sm.authenticator.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sm.sessions
	if s.session != nil {
		err := sessions.Bind(ctx, s.session, identity, token.RememberMe)
		switch {
		case err == nil:
			s.identity = identity
			return nil
		case errors.Is(err, session.ErrPrincipalMismatch):
			if err := sessions.Invalidate(ctx, s.session); err != nil {
				return err
			}
			s.sm.logger.Info("principal changed, previous session invalidated",
				"previous", s.identity.Principal(),
				"principal", identity.Principal(),
			)
		case auth.KindOf(err) != auth.KindSessionExpired:
			return err
		}
		// the old session is gone; start over with a fresh one
		s.session = nil
		s.identity = nil
	}

	sess, err := sessions.Create(ctx, identity, token.RememberMe)
	if err != nil {
		return err
	}
	s.session = sess
	s.identity = identity
	return nil
}

// Logout invalidates the session and forgets the identity. Logging out an
// unauthenticated Subject is a no-op.
func (s *Subject) Logout(ctx context.Context) error {
	s.mu.Lock()
	sess := s.session
	principal := s.identity.Principal()
	s.session = nil
	s.identity = nil
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	if err := s.sm.sessions.Invalidate(ctx, sess); err != nil {
		return err
	}
	if principal != "" {
		s.sm.logger.Info("logged out", "principal", principal)
	}
	return nil
}

// Session returns the current session, creating an unauthenticated one if
// there is none. An expired session ends authentication and is replaced.
func (s *Subject) Session(ctx context.Context) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sm.sessions
	if s.session != nil {
		err := sessions.Touch(ctx, s.session)
		if err == nil {
			return s.session, nil
		}
		if auth.KindOf(err) != auth.KindSessionExpired {
			return nil, err
		}
		s.sm.logger.Debug("session expired, starting a new one", "principal", s.identity.Principal())
		s.session = nil
		s.identity = nil
	}

	sess, err := sessions.Create(ctx, nil, false)
	if err != nil {
		return nil, err
	}
	s.session = sess
	return sess, nil
}

// IsAuthenticated reports whether a login succeeded and its session is
// still held.
func (s *Subject) IsAuthenticated() bool {
	return s.current() != nil
}

// Principal returns the authenticated principal, or "".
func (s *Subject) Principal() string {
	return s.current().Principal()
}

// Identity returns the authenticated identity, or nil.
func (s *Subject) Identity() *auth.Identity {
	return s.current()
}

// IsRemembered reports whether the session was extended by remember-me.
func (s *Subject) IsRemembered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live() && s.session.IsRemembered()
}

// HasRole is false when unauthenticated.
func (s *Subject) HasRole(role string) bool {
	return s.sm.authorizer.HasRole(s.current(), role)
}

// HasRoles answers HasRole for each role.
func (s *Subject) HasRoles(roles ...string) []bool {
	return s.sm.authorizer.HasRoles(s.current(), roles...)
}

// HasAllRoles is false when unauthenticated.
func (s *Subject) HasAllRoles(roles ...string) bool {
	return s.sm.authorizer.HasAllRoles(s.current(), roles...)
}

// IsPermitted is false when unauthenticated.
func (s *Subject) IsPermitted(permission string) bool {
	return s.sm.authorizer.IsPermitted(s.current(), permission)
}

// IsPermittedEach answers IsPermitted for each permission.
func (s *Subject) IsPermittedEach(permissions ...string) []bool {
	return s.sm.authorizer.IsPermittedEach(s.current(), permissions...)
}

// IsPermittedAll is false when unauthenticated.
func (s *Subject) IsPermittedAll(permissions ...string) bool {
	return s.sm.authorizer.IsPermittedAll(s.current(), permissions...)
}

// CheckRole returns a PermissionDenied error unless role is held.
func (s *Subject) CheckRole(role string) error {
	return s.sm.authorizer.CheckRole(s.current(), role)
}

// CheckPermission returns a PermissionDenied error unless permission is implied.
func (s *Subject) CheckPermission(permission string) error {
	return s.sm.authorizer.CheckPermission(s.current(), permission)
}

// current returns the identity while its session is alive.
func (s *Subject) current() *auth.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live() {
		return nil
	}
	return s.identity
}

// live must be called with mu held. It evaluates session expiry and drops
// both identity and session once the session is gone.
func (s *Subject) live() bool {
	if s.identity == nil || s.session == nil {
		return false
	}
	if s.sm.sessions.Alive(s.session) {
		return true
	}
	s.sm.logger.Debug("session ended, subject is no longer authenticated", "principal", s.identity.Principal())
	s.identity = nil
	s.session = nil
	return false
}
