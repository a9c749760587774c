package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// ListUsersResult is returned by UserService.List.
type ListUsersResult struct {
	Items      []*domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// UserService covers account self-service and admin user management.
type UserService interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, filter ListUsersFilter) (*ListUsersResult, error)
	ChangeRole(ctx context.Context, id, role string) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// CleanupInput is an operator-confirmed reconciliation request.
type CleanupInput struct {
	UserIDs []string
	Action  domain.CleanupAction
	Confirm bool
}

// OrphanService detects and reconciles accounts whose provider identity is gone.
type OrphanService interface {
	Scan(ctx context.Context) (*domain.OrphanScanReport, error)
	ListOrphaned(ctx context.Context) ([]*domain.User, error)
	Cleanup(ctx context.Context, in CleanupInput) ([]domain.CleanupResult, error)
}
