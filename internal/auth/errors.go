package auth

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies every failure the security core can report.
// The set is closed; KindOther is the fallback for anything unexpected.
type Kind int

const (
	KindOther Kind = iota
	KindUnknownPrincipal
	KindIncorrectCredential
	KindAccountLocked
	KindSessionExpired
	KindTimeout
	KindStorageUnavailable
	KindTypeMismatch
	KindPermissionDenied
)

var kindNames = map[Kind]string{
	KindOther:               "other",
	KindUnknownPrincipal:    "unknown_principal",
	KindIncorrectCredential: "incorrect_credential",
	KindAccountLocked:       "account_locked",
	KindSessionExpired:      "session_expired",
	KindTimeout:             "timeout",
	KindStorageUnavailable:  "storage_unavailable",
	KindTypeMismatch:        "type_mismatch",
	KindPermissionDenied:    "permission_denied",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether a caller may retry the operation that failed
// with this kind. Only storage outages are considered transient.
func (k Kind) Retryable() bool {
	return k == KindStorageUnavailable
}

// Error is the single error type returned by authenticators, session
// managers and authorizers. Callers branch on Kind, never on the message.
type Error struct {
	Kind Kind
	// Principal is set when the failure concerns a specific identity.
	Principal string
	// Op names the failing operation (e.g. "authenticate", "session.get").
	Op  string
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Principal != "" {
		msg += fmt.Sprintf(" (principal %q)", e.Principal)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is regardless of principal, op or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnknownPrincipal    = &Error{Kind: KindUnknownPrincipal}
	ErrIncorrectCredential = &Error{Kind: KindIncorrectCredential}
	ErrAccountLocked       = &Error{Kind: KindAccountLocked}
	ErrSessionExpired      = &Error{Kind: KindSessionExpired}
	ErrTimeout             = &Error{Kind: KindTimeout}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable}
	ErrTypeMismatch        = &Error{Kind: KindTypeMismatch}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
)

// NewError builds an *Error of the given kind.
func NewError(kind Kind, op, principal string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Principal: principal, Err: cause}
}

// KindOf extracts the Kind from err. Context errors map to KindTimeout;
// nil maps to KindOther and so does anything not produced by this package.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if IsContextErr(err) {
		return KindTimeout
	}
	return KindOther
}

// IsContextErr reports whether err stems from a cancelled or expired context.
func IsContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// CheckContext returns a KindTimeout error when ctx is already done.
func CheckContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return NewError(KindTimeout, op, "", err)
	}
	return nil
}

// StorageError classifies a failure coming from a backing store: context
// errors become KindTimeout, everything else KindStorageUnavailable.
// Errors already carrying a Kind pass through unchanged.
func StorageError(op, principal string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if IsContextErr(err) {
		return NewError(KindTimeout, op, principal, err)
	}
	return NewError(KindStorageUnavailable, op, principal, err)
}
