package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// FavoriteRepository stores bookmarks. Add and Remove are idempotent.
type FavoriteRepository interface {
	Add(ctx context.Context, userID, cafeID string) error
	Remove(ctx context.Context, userID, cafeID string) error
	ListCafes(ctx context.Context, userID string) ([]*domain.Cafe, error)
}

// RatingRepository stores one rating per (user, cafe).
type RatingRepository interface {
	// Upsert creates the rating or replaces the score and review of the existing one.
	Upsert(ctx context.Context, r *domain.Rating) error
	Delete(ctx context.Context, userID, cafeID string) error
	ListByCafe(ctx context.Context, cafeID string, page, limit int) ([]*domain.Rating, int64, error)
}
