// Package auth resolves the caller's identity from a bearer credential.
package auth

import (
	"context"
	"strings"

	"go-inventory-pos/pkg/jwt"
)

type Status int

const (
	Anonymous Status = iota
	Invalid
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	default:
		return "anonymous"
	}
}

// Identity is the resolved caller of one request. UserID is set only when Authenticated.
type Identity struct {
	Status Status
	UserID string
}

func (i Identity) IsAuthenticated() bool {
	return i.Status == Authenticated && i.UserID != ""
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, Anonymous when there is none.
func FromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{Status: Anonymous}
	}
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return id
	}
	return Identity{Status: Anonymous}
}

type TokenVerifier interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

type Resolver struct {
	verifier TokenVerifier
}

func NewResolver(v TokenVerifier) *Resolver {
	return &Resolver{verifier: v}
}

// Resolve reads an Authorization header value. Anything that is not "Bearer <token>" is
// treated as no credential at all.
func (r *Resolver) Resolve(header string) Identity {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return Identity{Status: Anonymous}
	}
	return r.ResolveToken(parts[1])
}

// ResolveToken verifies a raw token. A present but unverifiable token is Invalid, never Anonymous.
func (r *Resolver) ResolveToken(token string) Identity {
	if token == "" {
		return Identity{Status: Anonymous}
	}
	claims, err := r.verifier.ValidateToken(token)
	if err != nil || claims.Subject == "" {
		return Identity{Status: Invalid}
	}
	return Identity{Status: Authenticated, UserID: claims.Subject}
}
