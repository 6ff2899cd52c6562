package realm

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/ini.v1"

	"github.com/terraconstructs/gridguard/internal/auth"
	"github.com/terraconstructs/gridguard/internal/services/iam"
)

// Section names of a realm file.
const (
	SectionUsers  = "users"
	SectionRoles  = "roles"
	SectionLocked = "locked"
)

// QuickstartINI is the built-in demo realm.
//
//go:embed quickstart.ini
var QuickstartINI []byte

// IniRealm is a CredentialStore loaded from a Shiro-style INI file:
//
//	[users]
//	lonestarr = vespa, goodguy, schwartz
//	[roles]
//	schwartz = lightsaber:*
//	[locked]
//	presidentskroob = true
//
// The account table is immutable after load. Lockout state lives in
// per-account atomics and is lost on restart.
type IniRealm struct {
	accounts map[string]*iniAccount
	logger   *slog.Logger
}

type iniAccount struct {
	principal   string
	credential  string
	roles       []string
	permissions []string

	failures atomic.Int32
	locked   atomic.Bool
}

var _ iam.CredentialStore = (*IniRealm)(nil)

// LoadIniRealm reads a realm file from disk.
func LoadIniRealm(path string, logger *slog.Logger) (*IniRealm, error) {
	cfg, err := ini.LoadSources(iniLoadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("load realm file %s: %w", path, err)
	}
	r, err := newIniRealm(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("realm file %s: %w", path, err)
	}
	return r, nil
}

// ParseIniRealm builds a realm from INI content.
func ParseIniRealm(data []byte, logger *slog.Logger) (*IniRealm, error) {
	cfg, err := ini.LoadSources(iniLoadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse realm: %w", err)
	}
	return newIniRealm(cfg, logger)
}

var iniLoadOptions = ini.LoadOptions{
	KeyValueDelimiters:      "=",
	IgnoreInlineComment:     true,
	PreserveSurroundedQuote: true,
	SkipUnrecognizableLines: false,
}

func newIniRealm(cfg *ini.File, logger *slog.Logger) (*IniRealm, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// [roles]
	rolePerms := make(map[string][]string)
	if sec, err := cfg.GetSection(SectionRoles); err == nil {
		for _, key := range sec.Keys() {
			perms := splitList(key.Value())
			for _, p := range perms {
				if _, err := auth.ParsePermission(p); err != nil {
					return nil, fmt.Errorf("role %q: %w", key.Name(), err)
				}
			}
			rolePerms[key.Name()] = perms
		}
	}

	// [users]
	sec, err := cfg.GetSection(SectionUsers)
	if err != nil {
		return nil, fmt.Errorf("missing [%s] section", SectionUsers)
	}

	accounts := make(map[string]*iniAccount, len(sec.Keys()))
	for _, key := range sec.Keys() {
		fields := splitList(key.Value())
		if len(fields) == 0 {
			return nil, fmt.Errorf("user %q has no password", key.Name())
		}

		acct := &iniAccount{
			principal:  key.Name(),
			credential: fields[0],
			roles:      fields[1:],
		}
		seen := make(map[string]struct{})
		for _, role := range acct.roles {
			perms, ok := rolePerms[role]
			if !ok {
				logger.Debug("role has no [roles] entry", "user", key.Name(), "role", role)
			}
			for _, p := range perms {
				if _, dup := seen[p]; dup {
					continue
				}
				seen[p] = struct{}{}
				acct.permissions = append(acct.permissions, p)
			}
		}
		accounts[acct.principal] = acct
	}

	// [locked]
	if sec, err := cfg.GetSection(SectionLocked); err == nil {
		for _, key := range sec.Keys() {
			acct, ok := accounts[key.Name()]
			if !ok {
				return nil, fmt.Errorf("[%s] names unknown user %q", SectionLocked, key.Name())
			}
			locked, err := key.Bool()
			if err != nil {
				return nil, fmt.Errorf("[%s] %s: %w", SectionLocked, key.Name(), err)
			}
			acct.locked.Store(locked)
		}
	}

	logger.Debug("loaded ini realm", "users", len(accounts), "roles", len(rolePerms))
	return &IniRealm{accounts: accounts, logger: logger}, nil
}

// Lookup returns a snapshot of the account.
func (r *IniRealm) Lookup(ctx context.Context, principal string) (*iam.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	acct, ok := r.accounts[principal]
	if !ok {
		return nil, nil
	}
	return &iam.Account{
		Principal:   acct.principal,
		Credential:  acct.credential,
		Roles:       append([]string(nil), acct.roles...),
		Permissions: append([]string(nil), acct.permissions...),
		Locked:      acct.locked.Load(),
	}, nil
}

// RecordFailure counts a failure. Exactly one caller observes the counter
// reaching threshold, so exactly one call reports the lock.
func (r *IniRealm) RecordFailure(ctx context.Context, principal string, threshold int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	acct, ok := r.accounts[principal]
	if !ok {
		return false, nil
	}
	n := acct.failures.Add(1)
	if threshold > 0 && int(n) == threshold {
		acct.locked.Store(true)
		return true, nil
	}
	return false, nil
}

// ResetFailures clears the failure counter.
func (r *IniRealm) ResetFailures(ctx context.Context, principal string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if acct, ok := r.accounts[principal]; ok {
		acct.failures.Store(0)
	}
	return nil
}

// Principals lists every user, sorted.
func (r *IniRealm) Principals() []string {
	out := make([]string, 0, len(r.accounts))
	for p := range r.accounts {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// splitList splits a comma-separated value. Double-quoted items may contain
// commas; the quotes are removed. Empty items are dropped.
func splitList(value string) []string {
	var (
		out     []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		item := strings.TrimSpace(current.String())
		item = strings.Trim(item, `"`)
		if item != "" {
			out = append(out, item)
		}
		current.Reset()
	}

	for _, r := range value {
		switch {
		case r == '"':
			quoted = !quoted
			current.WriteRune(r)
		case r == ',' && !quoted:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return out
}
