package iam

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost used when hashing new credentials.
const DefaultHashCost = 12

// Matcher names accepted by NewMatcher.
const (
	MatcherAuto   = "auto"
	MatcherBcrypt = "bcrypt"
	MatcherPlain  = "plain"
)

// CredentialMatcher compares a submitted secret against stored credential
// material. A mismatch is (false, nil); an error means the stored value is
// unusable.
type CredentialMatcher interface {
	Match(submitted, stored string) (bool, error)
}

// BcryptMatcher verifies secrets against bcrypt hashes.
type BcryptMatcher struct{}

func (BcryptMatcher) Match(submitted, stored string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(submitted))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("compare bcrypt hash: %w", err)
	}
}

// PlainMatcher compares plain-text secrets. Both sides are digested first
// so the comparison time depends on neither length nor content.
type PlainMatcher struct{}

func (PlainMatcher) Match(submitted, stored string) (bool, error) {
	a := sha256.Sum256([]byte(submitted))
	b := sha256.Sum256([]byte(stored))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1, nil
}

// AutoMatcher uses bcrypt for values that look like bcrypt hashes and
// plain comparison otherwise, so INI files may mix both.
type AutoMatcher struct{}

func (AutoMatcher) Match(submitted, stored string) (bool, error) {
	if IsBcryptHash(stored) {
		return BcryptMatcher{}.Match(submitted, stored)
	}
	return PlainMatcher{}.Match(submitted, stored)
}

// NewMatcher returns the matcher registered under name. Empty means auto.
func NewMatcher(name string) (CredentialMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatcherAuto:
		return AutoMatcher{}, nil
	case MatcherBcrypt:
		return BcryptMatcher{}, nil
	case MatcherPlain:
		return PlainMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown credential matcher %q (want auto, bcrypt or plain)", name)
	}
}

// IsBcryptHash reports whether stored carries a bcrypt version prefix.
func IsBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// HashCredential produces a bcrypt hash suitable for storage.
func HashCredential(secret string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("hash credential: %w", err)
	}
	return string(hash), nil
}
