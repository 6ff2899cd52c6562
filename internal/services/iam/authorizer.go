package iam

import (
	"fmt"
	"log/slog"

	"github.com/terraconstructs/gridguard/internal/auth"
)

// Engine answers single role and permission questions for an identity.
// A nil identity must yield false.
type Engine interface {
	HasRole(identity *auth.Identity, role string) bool
	IsPermitted(identity *auth.Identity, permission string) bool
}

// GrantEngine evaluates against the grants carried by the Identity itself.
// It is pure: no I/O, no shared state.
type GrantEngine struct {
	logger *slog.Logger
}

// NewGrantEngine creates a GrantEngine that logs malformed requests to logger.
func NewGrantEngine(logger *slog.Logger) *GrantEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &GrantEngine{logger: logger}
}

func (e *GrantEngine) HasRole(identity *auth.Identity, role string) bool {
	return identity.HasRole(role)
}

func (e *GrantEngine) IsPermitted(identity *auth.Identity, permission string) bool {
	if identity == nil {
		return false
	}
	requested, err := auth.ParsePermission(permission)
	if err != nil {
		e.logger.Debug("rejecting malformed permission", "permission", permission, "error", err)
		return false
	}
	return identity.Implies(requested)
}

// Authorizer layers the bulk and check variants over an Engine.
type Authorizer struct {
	engine Engine
}

// NewAuthorizer wraps engine. A nil engine defaults to a GrantEngine.
func NewAuthorizer(engine Engine) *Authorizer {
	if engine == nil {
		engine = NewGrantEngine(nil)
	}
	return &Authorizer{engine: engine}
}

// HasRole is an exact, case-sensitive membership test.
func (a *Authorizer) HasRole(identity *auth.Identity, role string) bool {
	return a.engine.HasRole(identity, role)
}

// HasRoles answers HasRole for each role, in order.
func (a *Authorizer) HasRoles(identity *auth.Identity, roles ...string) []bool {
	out := make([]bool, len(roles))
	for i, r := range roles {
		out[i] = a.engine.HasRole(identity, r)
	}
	return out
}

// HasAllRoles is true when every role is held. An empty list is vacuously
// true for an authenticated identity.
func (a *Authorizer) HasAllRoles(identity *auth.Identity, roles ...string) bool {
	if identity == nil {
		return false
	}
	for _, r := range roles {
		if !a.engine.HasRole(identity, r) {
			return false
		}
	}
	return true
}

// IsPermitted reports whether any granted permission implies permission.
func (a *Authorizer) IsPermitted(identity *auth.Identity, permission string) bool {
	return a.engine.IsPermitted(identity, permission)
}

// IsPermittedEach answers IsPermitted for each permission, in order.
func (a *Authorizer) IsPermittedEach(identity *auth.Identity, permissions ...string) []bool {
	out := make([]bool, len(permissions))
	for i, p := range permissions {
		out[i] = a.engine.IsPermitted(identity, p)
	}
	return out
}

// IsPermittedAll is true when every permission is implied.
func (a *Authorizer) IsPermittedAll(identity *auth.Identity, permissions ...string) bool {
	if identity == nil {
		return false
	}
	for _, p := range permissions {
		if !a.engine.IsPermitted(identity, p) {
			return false
		}
	}
	return true
}

// CheckRole returns a PermissionDenied error unless role is held.
func (a *Authorizer) CheckRole(identity *auth.Identity, role string) error {
	if a.engine.HasRole(identity, role) {
		return nil
	}
	return auth.NewError(auth.KindPermissionDenied, "check_role", identity.Principal(), fmt.Errorf("role %q not held", role))
}

// CheckRoles returns a PermissionDenied error for the first role not held.
func (a *Authorizer) CheckRoles(identity *auth.Identity, roles ...string) error {
	for _, r := range roles {
		if err := a.CheckRole(identity, r); err != nil {
			return err
		}
	}
	return nil
}

// CheckPermission returns a PermissionDenied error unless permission is implied.
func (a *Authorizer) CheckPermission(identity *auth.Identity, permission string) error {
	if a.engine.IsPermitted(identity, permission) {
		return nil
	}
	return auth.NewError(auth.KindPermissionDenied, "check_permission", identity.Principal(), fmt.Errorf("permission %q not granted", permission))
}

// CheckPermissions returns a PermissionDenied error for the first
// permission not implied.
func (a *Authorizer) CheckPermissions(identity *auth.Identity, permissions ...string) error {
	for _, p := range permissions {
		if err := a.CheckPermission(identity, p); err != nil {
			return err
		}
	}
	return nil
}
