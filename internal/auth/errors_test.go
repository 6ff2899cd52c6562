package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := NewError(KindAccountLocked, "authenticate", "presidentskroob", nil)
	wrapped := fmt.Errorf("login: %w", err)

	assert.True(t, errors.Is(wrapped, ErrAccountLocked))
	assert.False(t, errors.Is(wrapped, ErrIncorrectCredential))
	assert.Equal(t, KindAccountLocked, KindOf(wrapped))
	assert.Equal(t, `authenticate: account_locked (principal "presidentskroob")`, err.Error())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindOther, KindOf(nil))
	assert.Equal(t, KindOther, KindOf(errors.New("boom")))
	assert.Equal(t, KindTimeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, KindOf(fmt.Errorf("x: %w", context.Canceled)))
}

func TestKind_StringAndRetryable(t *testing.T) {
	assert.Equal(t, "session_expired", KindSessionExpired.String())
	assert.Equal(t, "kind(99)", Kind(99).String())

	for k := range kindNames {
		assert.Equal(t, k == KindStorageUnavailable, k.Retryable(), k.String())
	}
}

func TestCheckContext(t *testing.T) {
	assert.NoError(t, CheckContext(context.Background(), "op"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := CheckContext(ctx, "op")
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := StorageError("lookup", "root", cause)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.True(t, KindOf(err).Retryable())

	err = StorageError("lookup", "root", context.DeadlineExceeded)
	assert.Equal(t, KindTimeout, KindOf(err))

	typed := NewError(KindUnknownPrincipal, "lookup", "root", nil)
	assert.Same(t, typed, StorageError("lookup", "root", typed))
}
