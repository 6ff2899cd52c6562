package iam

import (
	"fmt"
	"log/slog"

	"github.com/casbin/casbin/v2"
	"github.com/terraconstructs/gridguard/internal/auth"
)

// PolicyAuthorizer evaluates roles and permissions against the live casbin
// policy instead of the grants frozen into the Identity at login.
//
// Policy lines are "p, role:<name>, <permission>" and groupings
// "g, user:<name>, role:<name>"; the model's matcher applies the same
// implication rule as auth.Permission. Queries are read-only: nothing here
// adds or removes policy.
type PolicyAuthorizer struct {
	enforcer casbin.IEnforcer
	logger   *slog.Logger
}

var _ Engine = (*PolicyAuthorizer)(nil)

// NewPolicyAuthorizer wraps a loaded enforcer.
func NewPolicyAuthorizer(enforcer casbin.IEnforcer, logger *slog.Logger) (*PolicyAuthorizer, error) {
	if enforcer == nil {
		return nil, fmt.Errorf("casbin enforcer not initialized")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PolicyAuthorizer{enforcer: enforcer, logger: logger}, nil
}

// Enforce checks permission for principal directly, without an Identity.
// Malformed requests are denied rather than reported as errors.
func (p *PolicyAuthorizer) Enforce(principal, permission string) (bool, error) {
	if _, err := auth.ParsePermission(permission); err != nil {
		p.logger.Debug("rejecting malformed permission", "permission", permission, "error", err)
		return false, nil
	}

	subject := auth.UserSubject(principal)
	allowed, err := p.enforcer.Enforce(subject, permission)
	if err != nil {
		return false, fmt.Errorf("casbin enforce for %s: %w", subject, err)
	}

	if allowed {
		p.logger.Debug("authorization granted", "subject", subject, "permission", permission)
	} else {
		p.logger.Debug("authorization denied", "subject", subject, "permission", permission)
	}
	return allowed, nil
}

// RolesFor returns the role names assigned to principal, including roles
// inherited through role-to-role groupings.
func (p *PolicyAuthorizer) RolesFor(principal string) ([]string, error) {
	subjects, err := p.enforcer.GetImplicitRolesForUser(auth.UserSubject(principal))
	if err != nil {
		return nil, fmt.Errorf("resolve roles for %s: %w", principal, err)
	}
	roles := make([]string, 0, len(subjects))
	for _, s := range subjects {
		name, err := auth.ExtractRoleName(s)
		if err != nil {
			continue
		}
		roles = append(roles, name)
	}
	return roles, nil
}

func (p *PolicyAuthorizer) HasRole(identity *auth.Identity, role string) bool {
	if identity == nil {
		return false
	}
	roles, err := p.RolesFor(identity.Principal())
	if err != nil {
		p.logger.Warn("role lookup failed", "principal", identity.Principal(), "error", err)
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *PolicyAuthorizer) IsPermitted(identity *auth.Identity, permission string) bool {
	if identity == nil {
		return false
	}
	allowed, err := p.Enforce(identity.Principal(), permission)
	if err != nil {
		p.logger.Warn("policy evaluation failed", "principal", identity.Principal(), "error", err)
		return false
	}
	return allowed
}
