package auth

import (
	"fmt"
	"sort"
)

// Identity is the result of a successful authentication: the verified
// principal plus the roles and permissions granted to it.
//
// Identity is immutable. Grants are copied and permissions parsed once in
// NewIdentity, so authorization checks never touch shared mutable state.
type Identity struct {
	principal   string
	roles       map[string]struct{}
	permissions []Permission
}

// NewIdentity builds an Identity. It fails if any permission string is
// malformed so a bad grant is reported at login rather than silently ignored.
func NewIdentity(principal string, roles, permissions []string) (*Identity, error) {
	if principal == "" {
		return nil, fmt.Errorf("identity requires a principal")
	}

	id := &Identity{
		principal:   principal,
		roles:       make(map[string]struct{}, len(roles)),
		permissions: make([]Permission, 0, len(permissions)),
	}
	for _, r := range roles {
		id.roles[r] = struct{}{}
	}

	seen := make(map[string]struct{}, len(permissions))
	for _, raw := range permissions {
		perm, err := ParsePermission(raw)
		if err != nil {
			return nil, fmt.Errorf("identity %q: %w", principal, err)
		}
		if _, dup := seen[perm.String()]; dup {
			continue
		}
		seen[perm.String()] = struct{}{}
		id.permissions = append(id.permissions, perm)
	}

	return id, nil
}

// Principal returns the verified principal identifier.
func (i *Identity) Principal() string {
	if i == nil {
		return ""
	}
	return i.principal
}

// Roles returns the granted role names, sorted.
func (i *Identity) Roles() []string {
	if i == nil {
		return nil
	}
	out := make([]string, 0, len(i.roles))
	for r := range i.roles {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Permissions returns the granted permission strings in grant order.
func (i *Identity) Permissions() []string {
	if i == nil {
		return nil
	}
	out := make([]string, 0, len(i.permissions))
	for _, p := range i.permissions {
		out = append(out, p.String())
	}
	return out
}

// HasRole is an exact, case-sensitive membership test.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	_, ok := i.roles[role]
	return ok
}

// Implies reports whether any granted permission implies requested.
func (i *Identity) Implies(requested Permission) bool {
	if i == nil {
		return false
	}
	for _, held := range i.permissions {
		if held.Implies(requested) {
			return true
		}
	}
	return false
}
