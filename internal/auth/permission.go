package auth

import (
	"fmt"
	"strings"
)

const (
	// WildcardToken matches any value at its position.
	WildcardToken = "*"
	// PartDivider separates the levels of a permission string.
	PartDivider = ":"
	// SubpartDivider separates alternatives within one level.
	SubpartDivider = ","
)

// Permission is a parsed, hierarchical permission string such as
// "winnebago:drive:eagle5" or "printer:print,query:*".
//
// Each level holds a set of alternatives. A Permission is immutable once
// parsed and safe for concurrent use.
type Permission struct {
	raw   string
	parts []permissionPart
}

type permissionPart map[string]struct{}

func (p permissionPart) wildcard() bool {
	_, ok := p[WildcardToken]
	return ok
}

func (p permissionPart) containsAll(other permissionPart) bool {
	for v := range other {
		if _, ok := p[v]; !ok {
			return false
		}
	}
	return true
}

// ParsePermission parses a colon-delimited permission string.
// Empty strings, empty levels and empty alternatives are rejected.
func ParsePermission(s string) (Permission, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Permission{}, fmt.Errorf("permission string is empty")
	}

	levels := strings.Split(trimmed, PartDivider)
	parts := make([]permissionPart, 0, len(levels))
	for i, level := range levels {
		part := make(permissionPart)
		for _, sub := range strings.Split(level, SubpartDivider) {
			sub = strings.TrimSpace(sub)
			if sub == "" {
				return Permission{}, fmt.Errorf("permission %q: empty value at level %d", s, i)
			}
			part[sub] = struct{}{}
		}
		parts = append(parts, part)
	}

	return Permission{raw: trimmed, parts: parts}, nil
}

// MustParsePermission is ParsePermission for literals known to be valid.
func MustParsePermission(s string) Permission {
	p, err := ParsePermission(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the permission as it was parsed (whitespace trimmed).
func (p Permission) String() string { return p.raw }

// Implies reports whether holding p grants the requested permission.
//
// Levels are compared left to right: each held level must be the wildcard
// or contain every alternative of the requested level. A held permission
// shorter than the request implies all of its suffixes; any held levels
// beyond the request must be wildcards.
func (p Permission) Implies(requested Permission) bool {
	if len(p.parts) == 0 {
		return false
	}

	for i, want := range requested.parts {
		if i >= len(p.parts) {
			return true
		}
		held := p.parts[i]
		if !held.wildcard() && !held.containsAll(want) {
			return false
		}
	}

	for i := len(requested.parts); i < len(p.parts); i++ {
		if !p.parts[i].wildcard() {
			return false
		}
	}

	return true
}

// PermissionImplies is the string form of Permission.Implies. Malformed
// input on either side never implies anything.
func PermissionImplies(held, requested string) bool {
	h, err := ParsePermission(held)
	if err != nil {
		return false
	}
	r, err := ParsePermission(requested)
	if err != nil {
		return false
	}
	return h.Implies(r)
}
