package session

import (
	"errors"
	"fmt"
)

// ErrPrincipalMismatch is the cause of a Bind onto a session that already
// belongs to another principal.
var ErrPrincipalMismatch = errors.New("session is bound to another principal")

type typeMismatch struct {
	key  string
	got  any
	want any
}

func (e typeMismatch) Error() string {
	return fmt.Sprintf("attribute %q holds %T, caller expected %T", e.key, e.got, e.want)
}
