package auth

import (
	"fmt"
	"strings"
)

// Prefix constants for Casbin subjects.
// Users and roles share the casbin_rules table, so every subject carries a
// type prefix to keep "admin" the user apart from "admin" the role.
const (
	PrefixUser = "user:"
	PrefixRole = "role:"
)

// UserSubject creates a Casbin user subject.
// Example: UserSubject("lonestarr") → "user:lonestarr"
func UserSubject(username string) string {
	return PrefixUser + username
}

// RoleSubject creates a Casbin role subject.
// Example: RoleSubject("schwartz") → "role:schwartz"
func RoleSubject(name string) string {
	return PrefixRole + name
}

// ExtractUsername strips the user prefix from a Casbin subject.
// Example: ExtractUsername("user:lonestarr") → "lonestarr", nil
func ExtractUsername(subject string) (string, error) {
	if !strings.HasPrefix(subject, PrefixUser) {
		return "", fmt.Errorf("invalid user subject: %s (expected prefix %s)", subject, PrefixUser)
	}
	return strings.TrimPrefix(subject, PrefixUser), nil
}

// ExtractRoleName strips the role prefix from a Casbin subject.
// Example: ExtractRoleName("role:schwartz") → "schwartz", nil
func ExtractRoleName(subject string) (string, error) {
	if !strings.HasPrefix(subject, PrefixRole) {
		return "", fmt.Errorf("invalid role subject: %s (expected prefix %s)", subject, PrefixRole)
	}
	return strings.TrimPrefix(subject, PrefixRole), nil
}
