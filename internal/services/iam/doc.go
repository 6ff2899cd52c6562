// Package iam provides authentication, authorization and the Subject facade
// for gridguard.
//
// The SecurityManager is the single entry point. It is built once at
// startup and passed explicitly to whatever needs it:
//
//   - Authenticator: verifies an AuthenticationToken against a CredentialStore
//     and enforces the lockout policy
//   - session.Manager: owns the session table (see package session)
//   - Authorizer: role and permission checks over an immutable Identity
//   - Subject: per-caller state machine combining at most one Identity and
//     at most one Session
//
// Request Flow:
//
//	sm.NewSubject() → Subject.Login(token) → Authenticator → CredentialStore
//	       ↓
//	   session.Manager.Bind / Create
//	       ↓
//	   Subject.IsPermitted(perm) → Authorizer → Engine (grants or casbin)
//
// Roles and permissions are resolved ONCE at login and carried by the
// Identity. Authorization never touches shared mutable state unless a
// PolicyAuthorizer is configured, which reads the live casbin policy.
package iam
