package firebase

import (
	"context"
	"errors"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

var _ ports.IdentityProvider = (*Client)(nil)

// Config selects the Firebase project. An empty CredentialsFile falls back to
// Application Default Credentials.
type Config struct {
	ProjectID       string
	CredentialsFile string
}

// Client adapts the Firebase Admin auth client to ports.IdentityProvider.
type Client struct {
	auth *auth.Client
}

// New builds the Admin SDK app and its auth client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase: project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return &Client{auth: client}, nil
}

// VerifyIDToken checks the signature, audience and expiry of a client ID token.
func (c *Client) VerifyIDToken(ctx context.Context, idToken string) (*ports.ProviderIdentity, error) {
	tok, err := c.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	return identityFromToken(tok), nil
}

// ListUIDs pages through every user in the project.
func (c *Client) ListUIDs(ctx context.Context) (map[string]struct{}, error) {
	uids := make(map[string]struct{})
	it := c.auth.Users(ctx, "")
	for {
		u, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list firebase users: %w", err)
		}
		uids[u.UID] = struct{}{}
	}
	return uids, nil
}

func identityFromToken(tok *auth.Token) *ports.ProviderIdentity {
	verified, _ := tok.Claims["email_verified"].(bool)
	ident := &ports.ProviderIdentity{
		UID:           tok.UID,
		Email:         claimString(tok.Claims, "email"),
		DisplayName:   claimString(tok.Claims, "name"),
		PhotoURL:      claimString(tok.Claims, "picture"),
		ProviderID:    tok.Firebase.SignInProvider,
		EmailVerified: verified,
	}
	if ident.ProviderID == "" {
		ident.ProviderID = domain.DefaultProviderID
	}
	return ident
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
