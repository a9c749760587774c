package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

const (
	SortByName   = "name"
	SortByRating = "rating"
	SortByNewest = "newest"
)

// ListCafesFilter carries all query parameters for listing cafes.
// Statuses is always set by the service layer.
type ListCafesFilter struct {
	Search      string              // optional: partial match on name or description
	City        string              // optional: case-insensitive exact match
	PriceTier   int                 // optional: 0 = any
	RoastSlugs  []string            // optional: cafe must offer at least one
	MethodSlugs []string            // optional: cafe must offer at least one
	MinRating   float64             // optional: derived average >= MinRating
	Statuses    []domain.CafeStatus // empty = any status
	Sort        string
	Page        int // 1-based
	Limit       int
}

// CafeRepository defines persistence operations for cafes and their lookup tables.
type CafeRepository interface {
	// Create and Update resolve RoastLevels and BrewingMethods by slug.
	Create(ctx context.Context, c *domain.Cafe) error
	Update(ctx context.Context, c *domain.Cafe) error
	Delete(ctx context.Context, id string) error
	// FindByID returns the cafe with its derived rating.
	FindByID(ctx context.Context, id string) (*domain.Cafe, error)
	List(ctx context.Context, filter ListCafesFilter) ([]*domain.Cafe, int64, error)
	// Markers returns published cafes, limited to box when it is non-nil.
	Markers(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error)
	RoastLevels(ctx context.Context) ([]domain.RoastLevel, error)
	BrewingMethods(ctx context.Context) ([]domain.BrewingMethod, error)
}
