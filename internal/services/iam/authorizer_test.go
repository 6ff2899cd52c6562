package iam

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/gridguard/internal/auth"
)

func mustIdentity(t *testing.T, principal string, roles, perms []string) *auth.Identity {
	t.Helper()
	id, err := auth.NewIdentity(principal, roles, perms)
	require.NoError(t, err)
	return id
}

func TestAuthorizer_IsPermitted(t *testing.T) {
	a := NewAuthorizer(NewGrantEngine(discardLogger()))

	tests := []struct {
		name      string
		held      []string
		requested string
		want      bool
	}{
		{name: "exact", held: []string{"lightsaber:wield"}, requested: "lightsaber:wield", want: true},
		{name: "unrelated", held: []string{"lightsaber:wield"}, requested: "winnebago:drive:eagle5", want: false},
		{name: "wildcard part", held: []string{"winnebago:drive:*"}, requested: "winnebago:drive:eagle5", want: true},
		{name: "shorter implies suffixes", held: []string{"lightsaber"}, requested: "lightsaber:wield", want: true},
		{name: "more specific held", held: []string{"winnebago:drive:eagle5"}, requested: "winnebago:drive", want: false},
		{name: "trailing wildcard beyond request", held: []string{"winnebago:drive:*"}, requested: "winnebago:drive", want: true},
		{name: "all", held: []string{"*"}, requested: "anything:at:all", want: true},
		{name: "any of several grants", held: []string{"printer:query", "lightsaber:*"}, requested: "lightsaber:wield", want: true},
		{name: "comma alternatives", held: []string{"printer:print,query"}, requested: "printer:query", want: true},
		{name: "case sensitive", held: []string{"lightsaber:wield"}, requested: "LightSaber:wield", want: false},
		{name: "malformed request", held: []string{"*"}, requested: "a::b", want: false},
		{name: "empty request", held: []string{"*"}, requested: "", want: false},
		{name: "no grants", held: nil, requested: "lightsaber:wield", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := mustIdentity(t, "u", nil, tt.held)
			assert.Equal(t, tt.want, a.IsPermitted(id, tt.requested))
		})
	}
}

func TestAuthorizer_NilIdentity(t *testing.T) {
	a := NewAuthorizer(nil)

	assert.False(t, a.HasRole(nil, "admin"))
	assert.False(t, a.HasAllRoles(nil))
	assert.False(t, a.IsPermitted(nil, "lightsaber:wield"))
	assert.False(t, a.IsPermittedAll(nil))
	assert.Equal(t, []bool{false, false}, a.IsPermittedEach(nil, "a", "b"))

	err := a.CheckPermission(nil, "lightsaber:wield")
	assert.True(t, errors.Is(err, auth.ErrPermissionDenied))
	err = a.CheckRole(nil, "admin")
	assert.True(t, errors.Is(err, auth.ErrPermissionDenied))
}

func TestAuthorizer_Roles(t *testing.T) {
	a := NewAuthorizer(nil)
	id := mustIdentity(t, "lonestarr", []string{"goodguy", "schwartz"}, nil)

	assert.True(t, a.HasRole(id, "schwartz"))
	assert.False(t, a.HasRole(id, "Schwartz"))
	assert.Equal(t, []bool{true, true, false}, a.HasRoles(id, "goodguy", "schwartz", "badguy"))
	assert.True(t, a.HasAllRoles(id, "goodguy", "schwartz"))
	assert.False(t, a.HasAllRoles(id, "goodguy", "badguy"))

	assert.NoError(t, a.CheckRoles(id, "goodguy", "schwartz"))
	err := a.CheckRoles(id, "goodguy", "badguy")
	require.Error(t, err)
	assert.Equal(t, auth.KindPermissionDenied, auth.KindOf(err))
	assert.Contains(t, err.Error(), "badguy")
}

func TestAuthorizer_PermissionVariants(t *testing.T) {
	a := NewAuthorizer(nil)
	id := mustIdentity(t, "lonestarr", nil, []string{"lightsaber:*", "winnebago:drive:eagle5"})

	assert.Equal(t, []bool{true, true, false},
		a.IsPermittedEach(id, "lightsaber:wield", "winnebago:drive:eagle5", "winnebago:sell"))
	assert.True(t, a.IsPermittedAll(id, "lightsaber:wield", "winnebago:drive:eagle5"))
	assert.False(t, a.IsPermittedAll(id, "lightsaber:wield", "winnebago:sell"))

	assert.NoError(t, a.CheckPermissions(id, "lightsaber:wield"))
	err := a.CheckPermissions(id, "lightsaber:wield", "winnebago:sell")
	assert.True(t, errors.Is(err, auth.ErrPermissionDenied))
}
