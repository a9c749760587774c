package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// RateInput is a user's score and review for a cafe.
type RateInput struct {
	UserID string
	CafeID string
	Score  int
	Review string
}

// ListRatingsResult is returned by EngagementService.ListRatings.
type ListRatingsResult struct {
	Items      []*domain.Rating
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// EngagementService covers favorites and ratings.
type EngagementService interface {
	AddFavorite(ctx context.Context, userID, cafeID string) error
	RemoveFavorite(ctx context.Context, userID, cafeID string) error
	ListFavorites(ctx context.Context, userID string) ([]*domain.Cafe, error)
	Rate(ctx context.Context, in RateInput) (*domain.Rating, error)
	RemoveRating(ctx context.Context, userID, cafeID string) error
	ListRatings(ctx context.Context, cafeID string, page, limit int) (*ListRatingsResult, error)
}
