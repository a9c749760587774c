package ports

import (
	"context"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// ListCafesInput carries all parameters for the list endpoint.
type ListCafesInput struct {
	Role        string // admins may see every status
	Search      string
	City        string
	PriceTier   int
	RoastSlugs  []string
	MethodSlugs []string
	MinRating   float64
	Statuses    []domain.CafeStatus // honoured for admins only
	Sort        string
	Page        int
	Limit       int
}

// ListCafesResult is returned by CafeService.List.
type ListCafesResult struct {
	Items      []*domain.Cafe
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// CafeInput carries the editable fields of a listing.
type CafeInput struct {
	Name        string
	Description string
	Address     string
	City        string
	Lat         float64
	Lng         float64
	PriceTier   int
	Status      string // optional on create, defaults to draft
	Website     string
	ImageURL    string
	OwnerID     string
	RoastSlugs  []string
	MethodSlugs []string
}

// Filters lists the lookup values a client can filter by.
type Filters struct {
	RoastLevels    []domain.RoastLevel
	BrewingMethods []domain.BrewingMethod
}

// CafeService defines use-case operations for cafes.
type CafeService interface {
	List(ctx context.Context, in ListCafesInput) (*ListCafesResult, error)
	Get(ctx context.Context, id, role string) (*domain.Cafe, error)
	Markers(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error)
	Filters(ctx context.Context) (*Filters, error)
	Create(ctx context.Context, in CafeInput) (*domain.Cafe, error)
	Update(ctx context.Context, id string, in CafeInput) (*domain.Cafe, error)
	SetStatus(ctx context.Context, id, status string) (*domain.Cafe, error)
	Delete(ctx context.Context, id string) error
}
