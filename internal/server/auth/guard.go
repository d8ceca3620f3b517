package auth

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/portfolio/internal/common"
)

// State is the outcome of resolving the caller's session.
type State int

const (
	// Resolving means the session has not been checked yet.
	Resolving State = iota
	Unauthenticated
	AuthenticatedNonOwner
	AuthenticatedOwner
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AuthenticatedNonOwner:
		return "authenticated-non-owner"
	case AuthenticatedOwner:
		return "authenticated-owner"
	default:
		return "resolving"
	}
}

// Identity is the resolved caller.
type Identity struct {
	State  State
	UserID string
	// Expired is set when the access token was well-formed but past its
	// lifetime, so a refresh may restore the session.
	Expired bool
}

// Resolver turns an access token into an Identity, comparing the token's user
// id against the single owner id.
type Resolver struct {
	secret  []byte
	ownerID string
}

func NewResolver(secret []byte, ownerID string) *Resolver {
	return &Resolver{secret: secret, ownerID: ownerID}
}

func (r *Resolver) OwnerID() string { return r.ownerID }

// Resolve never returns the Resolving state.
func (r *Resolver) Resolve(token string) Identity {
	if token == "" {
		return Identity{State: Unauthenticated}
	}
	userID, err := GetUserIDFromToken(token, r.secret)
	if err != nil {
		return Identity{State: Unauthenticated, Expired: errors.Is(err, common.ErrTokenExpired)}
	}
	if r.ownerID != "" && userID == r.ownerID {
		return Identity{State: AuthenticatedOwner, UserID: userID}
	}
	return Identity{State: AuthenticatedNonOwner, UserID: userID}
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity, or the zero
// Identity (Resolving) when none was stored.
func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// Action is what the admin surface must do for a caller.
type Action int

const (
	// Wait renders neither admin content nor a redirect.
	Wait Action = iota
	Allow
	RedirectToLogin
	RedirectToRoot
)

// Decision is the guard's verdict. Notice is shown to the caller after a
// redirect.
type Decision struct {
	Action Action
	Notice string
}

// Guard admits only the owner to the admin panel.
type Guard struct{}

func (Guard) Decide(s State) Decision {
	switch s {
	case AuthenticatedOwner:
		return Decision{Action: Allow}
	case AuthenticatedNonOwner:
		return Decision{Action: RedirectToRoot, Notice: common.NoticeNotAuthorized}
	case Unauthenticated:
		return Decision{Action: RedirectToLogin}
	default:
		return Decision{Action: Wait}
	}
}
