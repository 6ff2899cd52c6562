package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	casbinbunadapter "github.com/terraconstructs/gridguard/internal/auth/bunadapter"
	"github.com/uptrace/bun"
)

//go:embed model.conf
var casbinModelContent string

// InitEnforcer creates a Casbin enforcer backed by the casbin_rules table.
// Policies are "p, role:<name>, <permission>" and groupings
// "g, user:<name>, role:<name>".
func InitEnforcer(db *bun.DB) (casbin.IEnforcer, error) {
	adapter, err := casbinbunadapter.NewAdapter(db)
	if err != nil {
		return nil, fmt.Errorf("create casbin adapter: %w", err)
	}
	return NewEnforcer(adapter)
}

// NewEnforcer builds an enforcer with the embedded model over any adapter.
// A nil adapter yields an empty in-memory policy, which tests rely on.
func NewEnforcer(adapter persist.Adapter) (casbin.IEnforcer, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if adapter == nil {
		enforcer, err = casbin.NewSyncedEnforcer(m)
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m, adapter)
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	enforcer.AddFunction("permImplies", PermImpliesFunction())

	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("load casbin policies: %w", err)
		}
	}

	return enforcer, nil
}

// PermImpliesFunction exposes Permission.Implies to Casbin matchers as
// permImplies(held, requested).
func PermImpliesFunction() func(args ...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return false, fmt.Errorf("permImplies expects 2 arguments, got %d", len(args))
		}
		held, ok := args[0].(string)
		if !ok {
			return false, fmt.Errorf("permImplies: held permission must be a string, got %T", args[0])
		}
		requested, ok := args[1].(string)
		if !ok {
			return false, fmt.Errorf("permImplies: requested permission must be a string, got %T", args[1])
		}
		return PermissionImplies(held, requested), nil
	}
}
