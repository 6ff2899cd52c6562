package bunadapter_test

import (
	"context"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/auth/bunadapter"
	"github.com/terraconstructs/gridguard/internal/db/dbtest"
)

func TestAdapter_RoundTrip(t *testing.T) {
	db := dbtest.Open(t)

	adapter, err := bunadapter.NewAdapter(db)
	require.NoError(t, err)

	enforcer, err := auth.NewEnforcer(adapter)
	require.NoError(t, err)

	// seeded by migrations
	ok, err := enforcer.HasPolicy(auth.RoleSubject("schwartz"), "lightsaber:*")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = enforcer.AddGroupingPolicy(auth.UserSubject("lonestarr"), auth.RoleSubject("schwartz"))
	require.NoError(t, err)
	_, err = enforcer.AddPolicy(auth.RoleSubject("pilot"), "eagle5:fly")
	require.NoError(t, err)

	// a second enforcer sees what the first persisted
	reloaded, err := auth.NewEnforcer(adapter)
	require.NoError(t, err)
	allowed, err := reloaded.Enforce(auth.UserSubject("lonestarr"), "lightsaber:wield")
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = enforcer.RemovePolicy(auth.RoleSubject("pilot"), "eagle5:fly")
	require.NoError(t, err)
	_, err = enforcer.RemoveFilteredGroupingPolicy(0, auth.UserSubject("lonestarr"))
	require.NoError(t, err)

	reloaded, err = auth.NewEnforcer(adapter)
	require.NoError(t, err)
	allowed, err = reloaded.Enforce(auth.UserSubject("lonestarr"), "lightsaber:wield")
	require.NoError(t, err)
	assert.False(t, allowed)
	ok, err = reloaded.HasPolicy(auth.RoleSubject("pilot"), "eagle5:fly")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_SavePolicy(t *testing.T) {
	db := dbtest.Open(t)

	adapter, err := bunadapter.NewAdapter(db)
	require.NoError(t, err)
	enforcer, err := auth.NewEnforcer(adapter)
	require.NoError(t, err)

	enforcer.ClearPolicy()
	_, err = enforcer.AddPolicy(auth.RoleSubject("admin"), "*")
	require.NoError(t, err)
	require.NoError(t, enforcer.SavePolicy())

	var count int
	count, err = db.NewSelect().Model((*bunadapter.CasbinRule)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewAdapter_NilDB(t *testing.T) {
	_, err := bunadapter.NewAdapter(nil)
	assert.Error(t, err)
}
