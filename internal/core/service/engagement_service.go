package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

const maxReviewLength = 2000

type EngagementService struct {
	cafes     ports.CafeRepository
	favorites ports.FavoriteRepository
	ratings   ports.RatingRepository
}

func NewEngagementService(cafes ports.CafeRepository, favorites ports.FavoriteRepository, ratings ports.RatingRepository) *EngagementService {
	return &EngagementService{cafes: cafes, favorites: favorites, ratings: ratings}
}

// AddFavorite is idempotent; only published cafes can be bookmarked.
func (s *EngagementService) AddFavorite(ctx context.Context, userID, cafeID string) error {
	if err := s.requirePublic(ctx, cafeID); err != nil {
		return err
	}
	if err := s.favorites.Add(ctx, userID, cafeID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite is idempotent.
func (s *EngagementService) RemoveFavorite(ctx context.Context, userID, cafeID string) error {
	if err := s.favorites.Remove(ctx, userID, cafeID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *EngagementService) ListFavorites(ctx context.Context, userID string) ([]*domain.Cafe, error) {
	cafes, err := s.favorites.ListCafes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return cafes, nil
}

// Rate creates or replaces the caller's rating for a published cafe.
func (s *EngagementService) Rate(ctx context.Context, in ports.RateInput) (*domain.Rating, error) {
	if in.Score < domain.MinScore || in.Score > domain.MaxScore {
		return nil, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrInvalidInput, domain.MinScore, domain.MaxScore)
	}
	review := strings.TrimSpace(in.Review)
	if utf8.RuneCountInString(review) > maxReviewLength {
		return nil, fmt.Errorf("%w: review must be at most %d characters", domain.ErrInvalidInput, maxReviewLength)
	}
	if err := s.requirePublic(ctx, in.CafeID); err != nil {
		return nil, err
	}

	r := &domain.Rating{UserID: in.UserID, CafeID: in.CafeID, Score: in.Score, Review: review}
	if err := s.ratings.Upsert(ctx, r); err != nil {
		return nil, fmt.Errorf("rate cafe: %w", err)
	}
	return r, nil
}

// RemoveRating succeeds when there was nothing to remove.
func (s *EngagementService) RemoveRating(ctx context.Context, userID, cafeID string) error {
	err := s.ratings.Delete(ctx, userID, cafeID)
	if err != nil && !errors.Is(err, domain.ErrRatingNotFound) {
		return fmt.Errorf("remove rating: %w", err)
	}
	return nil
}

func (s *EngagementService) ListRatings(ctx context.Context, cafeID string, page, limit int) (*ports.ListRatingsResult, error) {
	if err := s.requirePublic(ctx, cafeID); err != nil {
		return nil, err
	}
	page, limit = normalizePage(page, limit)

	items, total, err := s.ratings.ListByCafe(ctx, cafeID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return &ports.ListRatingsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

func (s *EngagementService) requirePublic(ctx context.Context, cafeID string) error {
	cafe, err := s.cafes.FindByID(ctx, cafeID)
	if err != nil {
		return err
	}
	if !cafe.IsPublic() {
		return domain.ErrCafeNotFound
	}
	return nil
}
