package auth

import "fmt"

// AuthenticationToken is the principal/secret pair submitted for a single
// login attempt. It is discarded once verified.
type AuthenticationToken struct {
	Principal string
	Secret    string
	// RememberMe asks the session manager for a long-lived session.
	RememberMe bool
}

// NewUsernamePasswordToken builds a token for a username/password login.
func NewUsernamePasswordToken(username, password string, rememberMe bool) AuthenticationToken {
	return AuthenticationToken{Principal: username, Secret: password, RememberMe: rememberMe}
}

// String never includes the secret.
func (t AuthenticationToken) String() string {
	return fmt.Sprintf("token(principal:%s secret:******* remember:%t)", t.Principal, t.RememberMe)
}

// Clear wipes the secret once the token has been consumed.
func (t *AuthenticationToken) Clear() {
	t.Secret = ""
}
