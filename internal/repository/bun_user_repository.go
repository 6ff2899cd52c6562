package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/uptrace/bun"
)

// BunUserRepository implements UserRepository using Bun ORM
type BunUserRepository struct {
	db *bun.DB
}

// NewBunUserRepository creates a new Bun-based user repository
func NewBunUserRepository(db *bun.DB) *BunUserRepository {
	return &BunUserRepository{db: db}
}

// Create inserts a new user into the database
func (r *BunUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = bunx.NewUUIDv7()
	}
	_, err := r.db.NewInsert().
		Model(user).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID
func (r *BunUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by ID: %w", err)
	}
	return user, nil
}

// GetByUsername retrieves a user by username
func (r *BunUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return user, nil
}

// List retrieves all users
func (r *BunUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("username ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetPasswordHash updates the stored bcrypt hash for a user.
func (r *BunUserRepository) SetPasswordHash(ctx context.Context, id string, passwordHash string) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return requireRow(res, "user", id)
}

// RecordFailure counts a failed login. The increment, the threshold
// comparison and the lock are one UPDATE so concurrent failures are
// serialized by the row lock and exactly one of them observes the count
// reaching threshold.
func (r *BunUserRepository) RecordFailure(ctx context.Context, username string, threshold int) (bool, error) {
	now := time.Now().UTC()

	var count int
	err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("failed_attempts = failed_attempts + 1").
		Set("locked_at = CASE WHEN ? > 0 AND failed_attempts + 1 >= ? THEN COALESCE(locked_at, ?) ELSE locked_at END",
			threshold, threshold, now).
		Set("updated_at = ?", now).
		Where("username = ?", username).
		Returning("failed_attempts").
		Scan(ctx, &count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("user %s: %w", username, ErrNotFound)
		}
		return false, fmt.Errorf("record login failure: %w", err)
	}

	return threshold > 0 && count == threshold, nil
}

// ResetFailures clears the failure count after a successful login.
func (r *BunUserRepository) ResetFailures(ctx context.Context, username string) error {
	now := time.Now().UTC()
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("failed_attempts = 0").
		Set("last_login_at = ?", now).
		Set("updated_at = ?", now).
		Where("username = ?", username).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

// SetLocked locks or unlocks an account. Unlocking clears the failure count.
func (r *BunUserRepository) SetLocked(ctx context.Context, username string, locked bool) error {
	now := time.Now().UTC()
	q := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("updated_at = ?", now).
		Where("username = ?", username)
	if locked {
		q = q.Set("locked_at = COALESCE(locked_at, ?)", now)
	} else {
		q = q.Set("locked_at = NULL").Set("failed_attempts = 0")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user locked: %w", err)
	}
	return requireRow(res, "user", username)
}

// SetDisabled sets or clears disabled_at.
func (r *BunUserRepository) SetDisabled(ctx context.Context, username string, disabled bool) error {
	now := time.Now().UTC()
	q := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("updated_at = ?", now).
		Where("username = ?", username)
	if disabled {
		q = q.Set("disabled_at = COALESCE(disabled_at, ?)", now)
	} else {
		q = q.Set("disabled_at = NULL")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("set user disabled: %w", err)
	}
	return requireRow(res, "user", username)
}

func requireRow(res sql.Result, kind, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, key, ErrNotFound)
	}
	return nil
}
