package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a principal of the database realm.
// PasswordHash holds a bcrypt hash; plain-text credentials are only
// supported by the INI realm.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             string     `bun:"id,pk,type:uuid"`
	Username       string     `bun:"username,notnull,unique"`
	PasswordHash   string     `bun:"password_hash,notnull"`
	FailedAttempts int        `bun:"failed_attempts,notnull,default:0"`
	LockedAt       *time.Time `bun:"locked_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt    *time.Time `bun:"last_login_at"`
	DisabledAt     *time.Time `bun:"disabled_at"`
}

// IsLocked reports whether the user may not log in, either because of
// repeated failures or because an operator disabled the account.
func (u *User) IsLocked() bool {
	if u == nil {
		return false
	}
	return u.LockedAt != nil || u.DisabledAt != nil
}

// Role is a named set of permissions. The permissions themselves live in
// casbin_rules as "p, role:<name>, <permission>".
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          string    `bun:"id,pk,type:uuid"`
	Name        string    `bun:"name,notnull,unique"`
	Description string    `bun:"description"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// UserRole assigns a role to a user.
type UserRole struct {
	bun.BaseModel `bun:"table:user_roles,alias:ur"`

	ID         string    `bun:"id,pk,type:uuid"`
	UserID     string    `bun:"user_id,notnull,type:uuid"` // FK to users(id)
	RoleID     string    `bun:"role_id,notnull,type:uuid"` // FK to roles(id)
	AssignedAt time.Time `bun:"assigned_at,notnull,default:current_timestamp"`
}
