package migrations

import (
	"context"
	"fmt"

	casbinbunadapter "github.com/terraconstructs/gridguard/internal/auth/bunadapter"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20251015000001, down_20251015000001)
}

// up_20251015000001 creates the database realm schema
func up_20251015000001(ctx context.Context, db *bun.DB) error {
	// 1. users
	fmt.Print(" [up] creating users table...")
	if _, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username)`); err != nil {
		return fmt.Errorf("create users username index: %w", err)
	}
	fmt.Println(" OK")

	// 2. roles
	fmt.Print(" [up] creating roles table...")
	if _, err := db.NewCreateTable().Model((*models.Role)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create roles: %w", err)
	}
	fmt.Println(" OK")

	// 3. user_roles
	fmt.Print(" [up] creating user_roles table...")
	q := db.NewCreateTable().Model((*models.UserRole)(nil)).IfNotExists()
	if IsSQLite(db) {
		// SQLite cannot add constraints after the fact
		q = q.ForeignKey(`(user_id) REFERENCES users(id) ON DELETE CASCADE`)
		q = q.ForeignKey(`(role_id) REFERENCES roles(id) ON DELETE CASCADE`)
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("create user_roles: %w", err)
	}
	if IsPostgreSQL(db) {
		fks := []string{
			`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_user_id FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE`,
			`ALTER TABLE user_roles ADD CONSTRAINT fk_user_roles_role_id FOREIGN KEY (role_id) REFERENCES roles(id) ON DELETE CASCADE`,
		}
		for _, stmt := range fks {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("user_roles constraint: %w", err)
			}
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_user_roles_user_role ON user_roles (user_id, role_id)`); err != nil {
		return fmt.Errorf("create user_roles unique index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_user_roles_role_id ON user_roles(role_id)`); err != nil {
		return fmt.Errorf("create user_roles role_id index: %w", err)
	}
	fmt.Println(" OK")

	// 4. casbin_rules
	fmt.Print(" [up] creating casbin_rules table...")
	if _, err := db.NewCreateTable().Model((*casbinbunadapter.CasbinRule)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create casbin_rules: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20251015000001 drops the realm schema
func down_20251015000001(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping realm tables...")

	tables := []string{"casbin_rules", "user_roles", "roles", "users"}
	for _, table := range tables {
		stmt := fmt.Sprintf("DROP TABLE IF EXISTS %s", table)
		if IsPostgreSQL(db) {
			stmt += " CASCADE"
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}

	fmt.Println(" OK")
	return nil
}
