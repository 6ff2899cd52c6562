package iam

import (
	"context"
	"fmt"
	"sync"
)

// mockCredentialStore is an in-memory CredentialStore for testing.
type mockCredentialStore struct {
	mu       sync.Mutex
	accounts map[string]*Account
	failures map[string]int

	lookupErr error
	resets    int
}

func newMockStore(accounts ...*Account) *mockCredentialStore {
	m := &mockCredentialStore{
		accounts: make(map[string]*Account),
		failures: make(map[string]int),
	}
	for _, a := range accounts {
		m.accounts[a.Principal] = a
	}
	return m
}

// quickstartStore mirrors the accounts of the quickstart INI file.
func quickstartStore() *mockCredentialStore {
	return newMockStore(
		&Account{
			Principal:   "root",
			Credential:  "secret",
			Roles:       []string{"admin"},
			Permissions: []string{"*"},
		},
		&Account{
			Principal:   "lonestarr",
			Credential:  "vespa",
			Roles:       []string{"goodguy", "schwartz"},
			Permissions: []string{"lightsaber:*", "winnebago:drive:eagle5"},
		},
		&Account{
			Principal:   "darkhelmet",
			Credential:  "ludicrousspeed",
			Roles:       []string{"badguy", "schwartz"},
			Permissions: []string{"lightsaber:*"},
		},
		&Account{
			Principal:   "presidentskroob",
			Credential:  "12345",
			Roles:       []string{"president"},
			Locked:      true,
		},
	)
}

func (m *mockCredentialStore) Lookup(ctx context.Context, principal string) (*Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	a, ok := m.accounts[principal]
	if !ok {
		return nil, nil
	}
	clone := *a
	return &clone, nil
}

func (m *mockCredentialStore) RecordFailure(ctx context.Context, principal string, threshold int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[principal]
	if !ok {
		return false, fmt.Errorf("account %s not found", principal)
	}
	m.failures[principal]++
	if threshold > 0 && !a.Locked && m.failures[principal] >= threshold {
		a.Locked = true
		return true, nil
	}
	return false, nil
}

func (m *mockCredentialStore) ResetFailures(ctx context.Context, principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[principal] = 0
	m.resets++
	return nil
}

func (m *mockCredentialStore) failureCount(principal string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[principal]
}

func (m *mockCredentialStore) isLocked(principal string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[principal].Locked
}
