package realm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/internal/repository"
	"github.com/terraconstructs/gridguard/internal/services/iam"
)

// DatabaseRealm is a CredentialStore backed by the users, user_roles and
// casbin_rules tables. Every Lookup reads current rows, so grants changed
// with the CLI apply from the next login on.
type DatabaseRealm struct {
	users     repository.UserRepository
	userRoles repository.UserRoleRepository
	policies  repository.PolicyRepository
	logger    *slog.Logger
}

var _ iam.CredentialStore = (*DatabaseRealm)(nil)

// NewDatabaseRealm builds a realm over explicit repositories.
func NewDatabaseRealm(
	users repository.UserRepository,
	userRoles repository.UserRoleRepository,
	policies repository.PolicyRepository,
	logger *slog.Logger,
) *DatabaseRealm {
	if logger == nil {
		logger = slog.Default()
	}
	return &DatabaseRealm{users: users, userRoles: userRoles, policies: policies, logger: logger}
}

// NewDatabaseRealmFromDB wires the Bun repositories over db.
func NewDatabaseRealmFromDB(db *bun.DB, logger *slog.Logger) *DatabaseRealm {
	return NewDatabaseRealm(
		repository.NewBunUserRepository(db),
		repository.NewBunUserRoleRepository(db),
		repository.NewBunPolicyRepository(db),
		logger,
	)
}

// Lookup resolves the user, its roles and the permissions of those roles.
func (r *DatabaseRealm) Lookup(ctx context.Context, principal string) (*iam.Account, error) {
	user, err := r.users.GetByUsername(ctx, principal)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	roles, err := r.userRoles.RoleNamesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles for %s: %w", principal, err)
	}

	perms, err := r.policies.PermissionsForRoles(ctx, roles)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions for %s: %w", principal, err)
	}

	return &iam.Account{
		Principal:   user.Username,
		Credential:  user.PasswordHash,
		Roles:       roles,
		Permissions: perms,
		Locked:      user.IsLocked(),
	}, nil
}

// RecordFailure delegates to the repository's single-statement update.
func (r *DatabaseRealm) RecordFailure(ctx context.Context, principal string, threshold int) (bool, error) {
	locked, err := r.users.RecordFailure(ctx, principal, threshold)
	if errors.Is(err, repository.ErrNotFound) {
		// deleted between lookup and now; nothing left to lock
		r.logger.Debug("failure recorded for vanished user", "principal", principal)
		return false, nil
	}
	return locked, err
}

// ResetFailures clears the failure count and stamps the login time.
func (r *DatabaseRealm) ResetFailures(ctx context.Context, principal string) error {
	return r.users.ResetFailures(ctx, principal)
}
