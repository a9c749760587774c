package ports

import "context"

// ProviderIdentity is a verified identity asserted by the external provider.
type ProviderIdentity struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	ProviderID    string
	// EmailVerified is the provider's email_verified claim. Only a verified
	// email may be matched against an existing account.
	EmailVerified bool
}

// IdentityProvider is the external sign-in service (Firebase Authentication).
type IdentityProvider interface {
	VerifyIDToken(ctx context.Context, idToken string) (*ProviderIdentity, error)
	// ListUIDs returns the set of every uid the provider currently knows.
	ListUIDs(ctx context.Context) (map[string]struct{}, error)
}
