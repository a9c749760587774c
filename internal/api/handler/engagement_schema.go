package handler

import (
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

type rateRequest struct {
	Rating int    `json:"rating" validate:"required,gte=1,lte=5"`
	Review string `json:"review" validate:"max=2000"`
}

type ratingResponse struct {
	ID         string    `json:"id"`
	CafeID     string    `json:"cafeId"`
	UserID     string    `json:"userId"`
	AuthorName string    `json:"authorName,omitempty"`
	Rating     int       `json:"rating"`
	Review     string    `json:"review"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type ratingListResponse struct {
	Data []*ratingResponse `json:"data"`
	Meta pageMeta          `json:"meta"`
}

func toRatingResponse(r *domain.Rating) *ratingResponse {
	return &ratingResponse{
		ID:         r.ID,
		CafeID:     r.CafeID,
		UserID:     r.UserID,
		AuthorName: r.AuthorName,
		Rating:     r.Score,
		Review:     r.Review,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}
