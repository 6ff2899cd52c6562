package iam

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/telemetry"
)

// DefaultLockoutThreshold locks an account after five consecutive failures.
const DefaultLockoutThreshold = 5

// Authenticator verifies AuthenticationTokens against a CredentialStore.
//
// Return values:
//   - (identity, nil): credentials verified, roles and permissions resolved
//   - (nil, *auth.Error): the Kind names the cause (unknown principal,
//     incorrect credential, locked account, timeout, storage outage)
//
// The authenticator is stateless apart from its collaborators and is safe
// for concurrent use.
type Authenticator struct {
	store     CredentialStore
	matcher   CredentialMatcher
	threshold int
	clock     clock.Clock
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

// NewAuthenticator creates an authenticator. threshold <= 0 disables lockout.
func NewAuthenticator(
	store CredentialStore,
	matcher CredentialMatcher,
	threshold int,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *Authenticator {
	if matcher == nil {
		matcher = AutoMatcher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		store:     store,
		matcher:   matcher,
		threshold: threshold,
		clock:     clock.New(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Authenticate verifies token and returns the principal's Identity.
func (a *Authenticator) Authenticate(ctx context.Context, token auth.AuthenticationToken) (*auth.Identity, error) {
	start := a.clock.Now()
	identity, err := a.authenticate(ctx, token)

	reason := ""
	if err != nil {
		reason = auth.KindOf(err).String()
	}
	a.metrics.RecordAuth(ctx, reason, float64(a.clock.Since(start))/float64(time.Millisecond))
	return identity, err
}

func (a *Authenticator) authenticate(ctx context.Context, token auth.AuthenticationToken) (*auth.Identity, error) {
	const op = "authenticate"
	principal := token.Principal

	if err := auth.CheckContext(ctx, op); err != nil {
		return nil, err
	}
	if principal == "" {
		return nil, auth.NewError(auth.KindUnknownPrincipal, op, "", nil)
	}

	// Step 1: Resolve the stored account
	account, err := a.store.Lookup(ctx, principal)
	if err != nil {
		a.logger.Warn("credential lookup failed", "principal", principal, "error", err)
		return nil, auth.StorageError(op, principal, err)
	}
	if account == nil {
		a.logger.Info("authentication failed: unknown principal", "principal", principal)
		return nil, auth.NewError(auth.KindUnknownPrincipal, op, principal, nil)
	}

	// Step 2: Locked accounts fail regardless of the secret
	if account.Locked {
		a.logger.Info("authentication failed: account locked", "principal", principal)
		return nil, auth.NewError(auth.KindAccountLocked, op, principal, nil)
	}

	// Step 3: Compare credentials
	ok, err := a.matcher.Match(token.Secret, account.Credential)
	if err != nil {
		a.logger.Error("stored credential unusable", "principal", principal, "error", err)
		return nil, auth.NewError(auth.KindOther, op, principal, err)
	}
	if !ok {
		return nil, a.recordFailure(ctx, principal)
	}

	// Step 4: Build the identity before resetting counters
	identity, err := auth.NewIdentity(account.Principal, account.Roles, account.Permissions)
	if err != nil {
		return nil, auth.NewError(auth.KindOther, op, principal, err)
	}

	if err := auth.CheckContext(ctx, op); err != nil {
		return nil, err
	}
	if err := a.store.ResetFailures(ctx, principal); err != nil {
		return nil, auth.StorageError(op, principal, err)
	}

	a.logger.Info("authentication succeeded",
		"principal", principal,
		"roles", identity.Roles(),
		"remember_me", token.RememberMe,
	)
	return identity, nil
}

// recordFailure counts the failed attempt. The attempt itself is reported
// as IncorrectCredential even when it is the one that locks the account.
func (a *Authenticator) recordFailure(ctx context.Context, principal string) error {
	const op = "authenticate"

	locked, err := a.store.RecordFailure(ctx, principal, a.threshold)
	if err != nil {
		a.logger.Warn("failed to record login failure", "principal", principal, "error", err)
		return auth.StorageError(op, principal, err)
	}
	if locked {
		a.metrics.RecordLockout(ctx)
		a.logger.Warn("account locked after repeated failures", "principal", principal, "threshold", a.threshold)
	} else {
		a.logger.Info("authentication failed: incorrect credential", "principal", principal)
	}
	return auth.NewError(auth.KindIncorrectCredential, op, principal, nil)
}
