package cmdutil

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/uptrace/bun"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/terraconstructs/gridguard/internal/repository"
	"github.com/terraconstructs/gridguard/internal/services/iam"
)

// Admin performs database realm administration. Role assignments are kept
// in two places: user_roles, read by the database realm at login, and the
// casbin "g" lines read by policy checks. Admin writes both.
type Admin struct {
	Users     repository.UserRepository
	Roles     repository.RoleRepository
	UserRoles repository.UserRoleRepository
	Enforcer  casbin.IEnforcer

	// HashCost is the bcrypt cost for new credentials; zero means
	// iam.DefaultHashCost.
	HashCost int
}

// NewAdmin wires repositories and a casbin enforcer over db.
func NewAdmin(db *bun.DB) (*Admin, error) {
	enforcer, err := auth.InitEnforcer(db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(true)

	return &Admin{
		Users:     repository.NewBunUserRepository(db),
		Roles:     repository.NewBunRoleRepository(db),
		UserRoles: repository.NewBunUserRoleRepository(db),
		Enforcer:  enforcer,
	}, nil
}

// CreateUser hashes password with bcrypt and inserts the user, then assigns
// roles. Every role must already exist.
func (a *Admin) CreateUser(ctx context.Context, username, password string, roles []string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	resolved := make([]*models.Role, 0, len(roles))
	for _, name := range roles {
		role, err := a.Roles.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("invalid role %q", name)
			}
			return nil, err
		}
		resolved = append(resolved, role)
	}

	hash, err := iam.HashCredential(password, a.HashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, PasswordHash: hash}
	if err := a.Users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	for _, role := range resolved {
		if err := a.assign(ctx, user, role); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// SetPassword replaces the user's credential with a bcrypt hash of password.
func (a *Admin) SetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	user, err := a.Users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	hash, err := iam.HashCredential(password, a.HashCost)
	if err != nil {
		return err
	}
	return a.Users.SetPasswordHash(ctx, user.ID, hash)
}

// AssignRole gives username the named role.
func (a *Admin) AssignRole(ctx context.Context, username, roleName string) error {
	user, role, err := a.resolve(ctx, username, roleName)
	if err != nil {
		return err
	}
	return a.assign(ctx, user, role)
}

// UnassignRole removes the named role from username.
func (a *Admin) UnassignRole(ctx context.Context, username, roleName string) error {
	user, role, err := a.resolve(ctx, username, roleName)
	if err != nil {
		return err
	}
	if err := a.UserRoles.Unassign(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("failed to unassign role %q: %w", role.Name, err)
	}
	if _, err := a.Enforcer.RemoveGroupingPolicy(auth.UserSubject(user.Username), auth.RoleSubject(role.Name)); err != nil {
		return fmt.Errorf("failed to remove casbin grouping for %q: %w", role.Name, err)
	}
	return nil
}

// Grant adds permissions to a role, creating the role if needed. Each
// permission is validated before anything is written.
func (a *Admin) Grant(ctx context.Context, roleName string, permissions ...string) error {
	for _, p := range permissions {
		if _, err := auth.ParsePermission(p); err != nil {
			return err
		}
	}

	if _, err := a.Roles.GetByName(ctx, roleName); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := a.Roles.Create(ctx, &models.Role{Name: roleName}); err != nil {
			return fmt.Errorf("failed to create role %q: %w", roleName, err)
		}
	}

	for _, p := range permissions {
		if _, err := a.Enforcer.AddPolicy(auth.RoleSubject(roleName), p); err != nil {
			return fmt.Errorf("failed to grant %q to %q: %w", p, roleName, err)
		}
	}
	return nil
}

// Revoke removes permissions from a role. Missing grants are ignored.
func (a *Admin) Revoke(ctx context.Context, roleName string, permissions ...string) error {
	if _, err := a.Roles.GetByName(ctx, roleName); err != nil {
		return fmt.Errorf("role %q: %w", roleName, err)
	}
	for _, p := range permissions {
		if _, err := a.Enforcer.RemovePolicy(auth.RoleSubject(roleName), p); err != nil {
			return fmt.Errorf("failed to revoke %q from %q: %w", p, roleName, err)
		}
	}
	return nil
}

// Permissions lists the permissions granted directly to a role.
func (a *Admin) Permissions(roleName string) ([]string, error) {
	rules, err := a.Enforcer.GetPermissionsForUser(auth.RoleSubject(roleName))
	if err != nil {
		return nil, err
	}
	perms := make([]string, 0, len(rules))
	for _, rule := range rules {
		if len(rule) > 1 {
			perms = append(perms, rule[1])
		}
	}
	return perms, nil
}

func (a *Admin) resolve(ctx context.Context, username, roleName string) (*models.User, *models.Role, error) {
	user, err := a.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("user %q: %w", username, err)
	}
	role, err := a.Roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, nil, fmt.Errorf("role %q: %w", roleName, err)
	}
	return user, role, nil
}

func (a *Admin) assign(ctx context.Context, user *models.User, role *models.Role) error {
	if err := a.UserRoles.Assign(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("failed to assign role %q: %w", role.Name, err)
	}
	if _, err := a.Enforcer.AddGroupingPolicy(auth.UserSubject(user.Username), auth.RoleSubject(role.Name)); err != nil {
		return fmt.Errorf("failed to add casbin grouping for %q: %w", role.Name, err)
	}
	return nil
}
