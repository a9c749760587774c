package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

var (
	_ ports.FavoriteRepository = (*FavoriteRepository)(nil)
	_ ports.RatingRepository   = (*RatingRepository)(nil)
)

// FavoriteRepository implements ports.FavoriteRepository with GORM.
type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(db *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, cafeID string) error {
	row := favoriteRow{UserID: userID, CafeID: cafeID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCafeNotFound
		}
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, cafeID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", userID, cafeID).
		Delete(&favoriteRow{}).Error
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListCafes returns the user's published favorites, most recently saved first.
func (r *FavoriteRepository) ListCafes(ctx context.Context, userID string) ([]*domain.Cafe, error) {
	db := r.db.WithContext(ctx)

	var ids []string
	err := db.Table("favorites").
		Joins("JOIN cafes ON cafes.id = favorites.cafe_id").
		Where("favorites.user_id = ? AND cafes.status = ?", userID, string(domain.CafePublished)).
		Order("favorites.created_at DESC").
		Pluck("favorites.cafe_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return loadCafes(db, ids)
}

// RatingRepository implements ports.RatingRepository with GORM.
type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert relies on uq_ratings_user_cafe; the stored row is read back into r.
func (r *RatingRepository) Upsert(ctx context.Context, rt *domain.Rating) error {
	db := r.db.WithContext(ctx)
	now := time.Now().UTC()

	row := ratingRow{
		ID:        uuid.NewString(),
		UserID:    rt.UserID,
		CafeID:    rt.CafeID,
		Score:     rt.Score,
		Review:    rt.Review,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "cafe_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "review", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCafeNotFound
		}
		return fmt.Errorf("upsert rating: %w", err)
	}

	var stored ratingRow
	if err := db.Where("user_id = ? AND cafe_id = ?", rt.UserID, rt.CafeID).First(&stored).Error; err != nil {
		return fmt.Errorf("read rating: %w", err)
	}
	rt.ID = stored.ID
	rt.CreatedAt = stored.CreatedAt
	rt.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *RatingRepository) Delete(ctx context.Context, userID, cafeID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND cafe_id = ?", userID, cafeID).
		Delete(&ratingRow{})
	if res.Error != nil {
		return fmt.Errorf("delete rating: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRatingNotFound
	}
	return nil
}

// ListByCafe pages a cafe's ratings newest first with the author's display name.
func (r *RatingRepository) ListByCafe(ctx context.Context, cafeID string, page, limit int) ([]*domain.Rating, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&ratingRow{}).Where("cafe_id = ?", cafeID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	type ratingWithAuthor struct {
		ratingRow
		AuthorName string
	}
	var rows []ratingWithAuthor
	err := db.Table("ratings").
		Select("ratings.*, users.display_name AS author_name").
		Joins("JOIN users ON users.id = ratings.user_id").
		Where("ratings.cafe_id = ?", cafeID).
		Order("ratings.updated_at DESC, ratings.id").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}

	out := make([]*domain.Rating, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.Rating{
			ID:         row.ID,
			UserID:     row.UserID,
			CafeID:     row.CafeID,
			Score:      row.Score,
			Review:     row.Review,
			AuthorName: row.AuthorName,
			CreatedAt:  row.CreatedAt,
			UpdatedAt:  row.UpdatedAt,
		})
	}
	return out, total, nil
}
