package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Verifier turns a raw bearer credential into an Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier validates ID tokens issued by the platform's identity
// provider and maps their claims into an Identity. The provider attaches
// platform metadata (role, platform-admin flag, tenant) under app_metadata.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and builds a token verifier for the
// given client ID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// oidcClaims is the wire shape of the provider's token payload.
type oidcClaims struct {
	Email       string `json:"email"`
	AppMetadata struct {
		Role          string `json:"role"`
		PlatformAdmin bool   `json:"is_platform_admin"`
		TenantID      string `json:"tenant_id"`
	} `json:"app_metadata"`
}

// Verify validates the token and adapts its claims. An invalid or expired
// token maps to ErrNoSession so callers stay fail-closed.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	if rawToken == "" {
		return nil, ErrNoSession
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	return &Identity{
		UserID:        idToken.Subject,
		Email:         claims.Email,
		Role:          claims.AppMetadata.Role,
		PlatformAdmin: claims.AppMetadata.PlatformAdmin,
		TenantID:      claims.AppMetadata.TenantID,
	}, nil
}
