package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPlainMatcher(t *testing.T) {
	m := PlainMatcher{}

	ok, err := m.Match("vespa", "vespa")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Match("vesp", "vespa")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.Match("", "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBcryptMatcher(t *testing.T) {
	hash, err := HashCredential("ludicrousspeed", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, IsBcryptHash(hash))

	ok, err := BcryptMatcher{}.Match("ludicrousspeed", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = BcryptMatcher{}.Match("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = BcryptMatcher{}.Match("x", "not-a-hash")
	assert.Error(t, err)
}

func TestAutoMatcher(t *testing.T) {
	hash, err := HashCredential("12345", bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := AutoMatcher{}.Match("12345", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// plain stored values never go through bcrypt
	ok, err = AutoMatcher{}.Match("12345", "12345")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AutoMatcher{}.Match(hash, "12345")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewMatcher(t *testing.T) {
	for name, want := range map[string]CredentialMatcher{
		"":       AutoMatcher{},
		"auto":   AutoMatcher{},
		"BCRYPT": BcryptMatcher{},
		"plain":  PlainMatcher{},
	} {
		got, err := NewMatcher(name)
		require.NoError(t, err, name)
		assert.IsType(t, want, got, name)
	}

	_, err := NewMatcher("md5")
	assert.Error(t, err)
}

func TestAccountString(t *testing.T) {
	a := &Account{Principal: "root", Credential: "secret", Roles: []string{"admin"}}
	assert.NotContains(t, a.String(), "secret")
	assert.Contains(t, a.String(), "root")
}
