package repository

import (
	"context"
	"errors"

	"github.com/terraconstructs/gridguard/internal/db/models"
)

// ErrNotFound is returned (wrapped) when a lookup by key matches no row.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for database realm users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByUsername returns an error wrapping ErrNotFound for unknown users.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetPasswordHash(ctx context.Context, id string, passwordHash string) error

	// RecordFailure increments failed_attempts and sets locked_at once the
	// count reaches threshold, in a single statement. It reports whether
	// this call locked the account. threshold <= 0 never locks.
	RecordFailure(ctx context.Context, username string, threshold int) (locked bool, err error)
	// ResetFailures zeroes failed_attempts and stamps last_login_at.
	ResetFailures(ctx context.Context, username string) error
	// SetLocked locks or unlocks the account and clears the failure count
	// on unlock.
	SetLocked(ctx context.Context, username string, locked bool) error
	// SetDisabled disables or re-enables the account. A disabled account
	// stays locked until re-enabled, whatever its failure count.
	SetDisabled(ctx context.Context, username string, disabled bool) error
}

// RoleRepository exposes persistence operations for roles.
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	GetByName(ctx context.Context, name string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Delete(ctx context.Context, id string) error
}

// UserRoleRepository exposes persistence operations for role assignments.
type UserRoleRepository interface {
	Assign(ctx context.Context, userID, roleID string) error
	Unassign(ctx context.Context, userID, roleID string) error
	// RoleNamesForUser returns the names of every role assigned to the
	// user, sorted.
	RoleNamesForUser(ctx context.Context, userID string) ([]string, error)
}

// PolicyRepository reads permission grants straight from casbin_rules.
// Writes go through the casbin enforcer so its in-memory model stays in step.
type PolicyRepository interface {
	// PermissionsForRoles returns the permissions granted to any of the
	// named roles, deduplicated, in storage order.
	PermissionsForRoles(ctx context.Context, roles []string) ([]string, error)
}
