// Package identity turns bearer tokens into principals. The server trusts an
// external identity provider and never stores credentials itself.
package identity

import (
	"context"
	"errors"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

type Principal struct {
	UID           string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
	Claims        map[string]any
}

type TokenVerifier interface {
	// Verify returns ErrTokenExpired or ErrTokenInvalid (possibly wrapped)
	// when the token is rejected.
	Verify(ctx context.Context, raw string) (*Principal, error)
}
