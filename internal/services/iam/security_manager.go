package iam

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/terraconstructs/gridguard/internal/services/session"
	"github.com/terraconstructs/gridguard/internal/telemetry"
)

// Config holds the policy knobs of a SecurityManager.
type Config struct {
	Session session.Config

	// LockoutThreshold is the number of consecutive failures that lock an
	// account. Zero disables lockout.
	LockoutThreshold int

	// SweepInterval enables the background session sweeper when > 0.
	SweepInterval time.Duration
}

// Dependencies are the collaborators of a SecurityManager. Store is
// required; everything else has a default.
type Dependencies struct {
	Store    CredentialStore
	Matcher  CredentialMatcher
	Sessions session.Store
	// Engine defaults to a GrantEngine over the Identity's own grants.
	Engine  Engine
	Clock   clock.Clock
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

// SecurityManager wires authentication, sessions and authorization together
// and hands out Subjects. Construct one at startup, pass it explicitly, and
// Close it at shutdown.
type SecurityManager struct {
	authenticator *Authenticator
	sessions      *session.Manager
	authorizer    *Authorizer
	logger        *slog.Logger

	sweepInterval time.Duration
	mu            sync.Mutex
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewSecurityManager builds a SecurityManager.
func NewSecurityManager(cfg Config, deps Dependencies) (*SecurityManager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("security manager requires a credential store")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	sessions, err := session.NewManager(cfg.Session, session.Dependencies{
		Store:   deps.Sessions,
		Clock:   deps.Clock,
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	authenticator := NewAuthenticator(deps.Store, deps.Matcher, cfg.LockoutThreshold, deps.Logger, deps.Metrics)
	authenticator.clock = deps.Clock

	engine := deps.Engine
	if engine == nil {
		engine = NewGrantEngine(deps.Logger)
	}

	return &SecurityManager{
		authenticator: authenticator,
		sessions:      sessions,
		authorizer:    NewAuthorizer(engine),
		logger:        deps.Logger,
		sweepInterval: cfg.SweepInterval,
	}, nil
}

// NewSubject returns an unauthenticated Subject with no session.
func (sm *SecurityManager) NewSubject() *Subject {
	return &Subject{sm: sm}
}

// Sessions exposes the session manager.
func (sm *SecurityManager) Sessions() *session.Manager { return sm.sessions }

// Start launches the session sweeper if one is configured. Calling Start
// on a running manager is a no-op.
func (sm *SecurityManager) Start(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.cancel != nil || sm.sweepInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	sm.cancel = cancel
	sm.wg.Add(1)
	go func() {
		defer sm.wg.Done()
		sm.sessions.RunSweeper(ctx, sm.sweepInterval)
	}()
	sm.logger.Debug("session sweeper started", "interval", sm.sweepInterval)
}

// Close stops background work and waits for it to exit.
func (sm *SecurityManager) Close() {
	sm.mu.Lock()
	cancel := sm.cancel
	sm.cancel = nil
	sm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	sm.wg.Wait()
}
