package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// ListUsersFilter carries the admin user list query.
type ListUsersFilter struct {
	Search string // optional: partial match on email or display name
	Role   string // optional
	Page   int    // 1-based
	Limit  int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	// Update persists every mutable field of u, including its identity.
	Update(ctx context.Context, u *domain.User) error
	// Delete removes the user together with its favorites and ratings.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByProviderUID(ctx context.Context, uid string) (*domain.User, error)
	FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)
	List(ctx context.Context, filter ListUsersFilter) ([]*domain.User, int64, error)
	// ListLinked returns every user that carries a provider link.
	ListLinked(ctx context.Context) ([]*domain.User, error)
	ListOrphaned(ctx context.Context) ([]*domain.User, error)
}
