package domain

import (
	"fmt"
	"strings"
)

type IdentityKind string

const (
	IdentityUser    IdentityKind = "user"
	IdentitySession IdentityKind = "session"
)

// Identity is the key a cart is stored under: an authenticated user id
// or an anonymous session token.
type Identity struct {
	Kind IdentityKind
	ID   string
}

func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, ID: strings.TrimSpace(userID)}
}

func SessionIdentity(sessionID string) Identity {
	return Identity{Kind: IdentitySession, ID: strings.TrimSpace(sessionID)}
}

// Key is the storage key, e.g. "user:42" or "session:5f1c...".
func (i Identity) Key() string {
	return string(i.Kind) + ":" + i.ID
}

func (i Identity) String() string {
	return i.Key()
}

func (i Identity) Validate() error {
	if i.Kind != IdentityUser && i.Kind != IdentitySession {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidIdentity, i.Kind)
	}
	if strings.TrimSpace(i.ID) == "" {
		return fmt.Errorf("%w: %s id is empty", ErrInvalidIdentity, i.Kind)
	}

	return nil
}
