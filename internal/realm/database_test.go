package realm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/db/dbtest"
	"github.com/terraconstructs/gridguard/internal/db/models"
	"github.com/terraconstructs/gridguard/internal/repository"
	"github.com/terraconstructs/gridguard/internal/services/iam"
)

func seedUser(t *testing.T, ctx context.Context, users repository.UserRepository, userRoles repository.UserRoleRepository, roles repository.RoleRepository, username, password string, roleNames ...string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{Username: username, PasswordHash: string(hash)}
	require.NoError(t, users.Create(ctx, user))

	for _, name := range roleNames {
		role, err := roles.GetByName(ctx, name)
		require.NoError(t, err)
		require.NoError(t, userRoles.Assign(ctx, user.ID, role.ID))
	}
}

func TestDatabaseRealm_Lookup(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	users := repository.NewBunUserRepository(db)
	userRoles := repository.NewBunUserRoleRepository(db)
	roles := repository.NewBunRoleRepository(db)
	seedUser(t, ctx, users, userRoles, roles, "lonestarr", "vespa", "goodguy", "schwartz")

	r := NewDatabaseRealmFromDB(db, discardLogger())

	acct, err := r.Lookup(ctx, "lonestarr")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, []string{"goodguy", "schwartz"}, acct.Roles)
	assert.ElementsMatch(t, []string{"lightsaber:*", "winnebago:drive:eagle5"}, acct.Permissions)
	assert.False(t, acct.Locked)
	assert.True(t, iam.IsBcryptHash(acct.Credential))

	missing, err := r.Lookup(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// End to end: SecurityManager over a database realm, including lockout
// persisted in the users table.
func TestDatabaseRealm_WithSecurityManager(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()

	users := repository.NewBunUserRepository(db)
	seedUser(t, ctx, users,
		repository.NewBunUserRoleRepository(db),
		repository.NewBunRoleRepository(db),
		"darkhelmet", "ludicrousspeed", "schwartz")

	sm, err := iam.NewSecurityManager(iam.Config{LockoutThreshold: 2}, iam.Dependencies{
		Store:  NewDatabaseRealmFromDB(db, discardLogger()),
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	defer sm.Close()

	subject := sm.NewSubject()
	require.NoError(t, subject.Login(ctx, auth.NewUsernamePasswordToken("darkhelmet", "ludicrousspeed", false)))
	assert.True(t, subject.IsPermitted("lightsaber:wield"))
	assert.False(t, subject.IsPermitted("winnebago:drive:eagle5"))
	require.NoError(t, subject.Logout(ctx))

	for i := 0; i < 2; i++ {
		err := subject.Login(ctx, auth.NewUsernamePasswordToken("darkhelmet", "wrong", false))
		assert.True(t, errors.Is(err, auth.ErrIncorrectCredential))
	}
	err = subject.Login(ctx, auth.NewUsernamePasswordToken("darkhelmet", "ludicrousspeed", false))
	assert.True(t, errors.Is(err, auth.ErrAccountLocked))

	require.NoError(t, users.SetLocked(ctx, "darkhelmet", false))
	assert.NoError(t, subject.Login(ctx, auth.NewUsernamePasswordToken("darkhelmet", "ludicrousspeed", false)))
}

func TestDatabaseRealm_StorageUnavailable(t *testing.T) {
	db := dbtest.Open(t)
	r := NewDatabaseRealmFromDB(db, discardLogger())
	require.NoError(t, db.Close())

	a := iam.NewAuthenticator(r, nil, 5, discardLogger(), nil)
	_, err := a.Authenticate(context.Background(), auth.NewUsernamePasswordToken("lonestarr", "vespa", false))
	require.Error(t, err)
	assert.Equal(t, auth.KindStorageUnavailable, auth.KindOf(err))
}
