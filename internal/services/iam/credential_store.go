package iam

import (
	"context"
	"fmt"
)

// Account is the stored record for one principal, as returned by a
// CredentialStore. Credential never leaves the Authenticator.
type Account struct {
	Principal   string
	Credential  string
	Roles       []string
	Permissions []string
	Locked      bool
}

// String masks the credential.
func (a *Account) String() string {
	if a == nil {
		return "account(nil)"
	}
	return fmt.Sprintf("account(principal:%s credential:******* roles:%v locked:%t)", a.Principal, a.Roles, a.Locked)
}

// CredentialStore resolves principals to stored accounts and tracks failed
// login attempts.
//
// Implementations:
//   - realm.IniRealm: Shiro-style INI file, counters held in memory
//   - realm.DatabaseRealm: bun repositories plus casbin grants
//
// All methods must be safe for concurrent use. Errors other than context
// errors are reported to callers as StorageUnavailable.
type CredentialStore interface {
	// Lookup returns (nil, nil) when the principal is not registered.
	Lookup(ctx context.Context, principal string) (*Account, error)

	// RecordFailure counts one failed attempt and locks the account once
	// the count reaches threshold. The increment and the comparison are a
	// single atomic step; locked reports whether this call caused the lock.
	// threshold <= 0 disables locking.
	RecordFailure(ctx context.Context, principal string, threshold int) (locked bool, err error)

	// ResetFailures clears the failure count after a successful login.
	ResetFailures(ctx context.Context, principal string) error
}
