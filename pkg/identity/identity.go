package identity

import (
	"context"
	"errors"
)

// ErrNoSession indicates that no authenticated session is present.
var ErrNoSession = errors.New("no active session")

// Identity is the authenticated caller as seen by the authorization layer.
// It is produced by an adapter at the session boundary; nothing downstream
// inspects raw provider claims.
type Identity struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	Role          string `json:"role,omitempty"` // empty when the session carries no role claim
	PlatformAdmin bool   `json:"is_platform_admin"`
	TenantID      string `json:"tenant_id,omitempty"`
}

// Resolver obtains the identity for the current call. Implementations must
// return ErrNoSession (possibly wrapped) when the caller is unauthenticated.
type Resolver interface {
	Resolve(ctx context.Context) (*Identity, error)
}

// contextKey is the type for context keys
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity stores an identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the identity stored by the session middleware.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey).(*Identity); ok {
		return id
	}
	return nil
}

// ContextResolver resolves the identity placed in the request context by the
// session middleware. This is the resolver the HTTP path uses.
type ContextResolver struct{}

// Resolve returns the identity from ctx or ErrNoSession.
func (ContextResolver) Resolve(ctx context.Context) (*Identity, error) {
	id := FromContext(ctx)
	if id == nil {
		return nil, ErrNoSession
	}
	return id, nil
}

// StaticResolver always returns the same identity (or error). Intended for
// tests and single-user tooling.
type StaticResolver struct {
	Identity *Identity
	Err      error
}

// Resolve returns the configured identity.
func (r StaticResolver) Resolve(ctx context.Context) (*Identity, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Identity == nil {
		return nil, ErrNoSession
	}
	return r.Identity, nil
}
