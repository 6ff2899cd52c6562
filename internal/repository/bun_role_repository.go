package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terraconstructs/gridguard/internal/auth"
	casbinbunadapter "github.com/terraconstructs/gridguard/internal/auth/bunadapter"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/uptrace/bun"
)

// ========================================
// Role Repository
// ========================================

// BunRoleRepository implements RoleRepository using Bun ORM
type BunRoleRepository struct {
	db *bun.DB
}

// NewBunRoleRepository creates a new Bun-based role repository
func NewBunRoleRepository(db *bun.DB) RoleRepository {
	return &BunRoleRepository{db: db}
}

// Create inserts a new role
func (r *BunRoleRepository) Create(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = bunx.NewUUIDv7()
	}

	_, err := r.db.NewInsert().
		Model(role).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// GetByName retrieves a role by name
func (r *BunRoleRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	role := new(models.Role)
	err := r.db.NewSelect().
		Model(role).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("role %s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return role, nil
}

// List retrieves all roles ordered by name
func (r *BunRoleRepository) List(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	err := r.db.NewSelect().
		Model(&roles).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// Delete removes a role; assignments cascade.
func (r *BunRoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*models.Role)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	return requireRow(res, "role", id)
}

// ========================================
// UserRole Repository
// ========================================

// BunUserRoleRepository implements UserRoleRepository using Bun ORM
type BunUserRoleRepository struct {
	db *bun.DB
}

// NewBunUserRoleRepository creates a new Bun-based user role repository
func NewBunUserRoleRepository(db *bun.DB) UserRoleRepository {
	return &BunUserRoleRepository{db: db}
}

// Assign links a user to a role. Assigning twice is a no-op.
func (r *BunUserRoleRepository) Assign(ctx context.Context, userID, roleID string) error {
	ur := &models.UserRole{
		ID:     bunx.NewUUIDv7(),
		UserID: userID,
		RoleID: roleID,
	}
	_, err := r.db.NewInsert().
		Model(ur).
		On("CONFLICT (user_id, role_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// Unassign removes a user-role link.
func (r *BunUserRoleRepository) Unassign(ctx context.Context, userID, roleID string) error {
	_, err := r.db.NewDelete().
		Model((*models.UserRole)(nil)).
		Where("user_id = ?", userID).
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("unassign role: %w", err)
	}
	return nil
}

// RoleNamesForUser returns the sorted names of the user's roles.
func (r *BunUserRoleRepository) RoleNamesForUser(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := r.db.NewSelect().
		Model((*models.Role)(nil)).
		Column("r.name").
		Join("JOIN user_roles AS ur ON ur.role_id = r.id").
		Where("ur.user_id = ?", userID).
		Order("r.name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list roles for user: %w", err)
	}
	return names, nil
}

// ========================================
// Policy Repository
// ========================================

// BunPolicyRepository implements PolicyRepository over casbin_rules.
type BunPolicyRepository struct {
	db *bun.DB
}

// NewBunPolicyRepository creates a new Bun-based policy reader
func NewBunPolicyRepository(db *bun.DB) PolicyRepository {
	return &BunPolicyRepository{db: db}
}

// PermissionsForRoles reads the "p" lines of the given roles.
func (r *BunPolicyRepository) PermissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	subjects := make([]string, len(roles))
	for i, role := range roles {
		subjects[i] = auth.RoleSubject(role)
	}

	var rules []casbinbunadapter.CasbinRule
	err := r.db.NewSelect().
		Model(&rules).
		Where("ptype = ?", "p").
		Where("v0 IN (?)", bun.In(subjects)).
		Order("v0 ASC", "v1 ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permissions for roles: %w", err)
	}

	seen := make(map[string]struct{}, len(rules))
	perms := make([]string, 0, len(rules))
	for _, rule := range rules {
		if _, dup := seen[rule.V1]; dup {
			continue
		}
		seen[rule.V1] = struct{}{}
		perms = append(perms, rule.V1)
	}
	return perms, nil
}
