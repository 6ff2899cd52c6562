package migrations

import (
	"context"
	"fmt"

	"github.com/terraconstructs/gridguard/internal/auth"
	casbinbunadapter "github.com/terraconstructs/gridguard/internal/auth/bunadapter"
	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20251015000002, down_20251015000002)
}

// quickstartGrants are the role definitions of the quickstart realm.
var quickstartGrants = []struct {
	role        string
	description string
	permissions []string
}{
	{role: "admin", description: "Unrestricted access", permissions: []string{"*"}},
	{role: "schwartz", description: "Lightsaber wielders", permissions: []string{"lightsaber:*"}},
	{role: "goodguy", description: "May drive the eagle5 winnebago", permissions: []string{"winnebago:drive:eagle5"}},
}

// up_20251015000002 seeds the quickstart roles and their permissions
func up_20251015000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] seeding quickstart roles...")

	for _, g := range quickstartGrants {
		role := &models.Role{
			ID:          bunx.NewUUIDv7(),
			Name:        g.role,
			Description: g.description,
		}
		_, err := db.NewInsert().
			Model(role).
			On("CONFLICT (name) DO NOTHING"). // Idempotent
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", g.role, err)
		}

		for _, perm := range g.permissions {
			rule := &casbinbunadapter.CasbinRule{Ptype: "p", V0: auth.RoleSubject(g.role), V1: perm}
			if _, err := db.NewInsert().Model(rule).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("failed to seed policy %s -> %s: %w", g.role, perm, err)
			}
		}
	}

	fmt.Println(" OK")
	return nil
}

// down_20251015000002 removes the seeded roles and policies
func down_20251015000002(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] removing quickstart roles...")

	for _, g := range quickstartGrants {
		_, err := db.NewDelete().
			Model((*casbinbunadapter.CasbinRule)(nil)).
			Where("v0 = ? OR v1 = ?", auth.RoleSubject(g.role), auth.RoleSubject(g.role)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove policies for %s: %w", g.role, err)
		}
		_, err = db.NewDelete().
			Model((*models.Role)(nil)).
			Where("name = ?", g.role).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to remove role %s: %w", g.role, err)
		}
	}

	fmt.Println(" OK")
	return nil
}
