package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// RegisterInput carries the data for a new local account.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
}

// AuthService defines sign-up, sign-in and password recovery.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// LoginWithProvider exchanges a provider ID token for a session token,
	// linking or creating the local account as needed.
	LoginWithProvider(ctx context.Context, idToken string) (string, *domain.User, error)
	// ForgotPassword never reveals whether the email exists.
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}
