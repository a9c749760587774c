package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// CafeStatus gates the public visibility of a listing.
type CafeStatus string

const (
	CafeDraft     CafeStatus = "draft"
	CafePublished CafeStatus = "published"
	CafeArchived  CafeStatus = "archived"
)

const (
	MinPriceTier = 1
	MaxPriceTier = 4
)

var ErrCafeNotFound = errors.New("cafe not found")

// Valid reports whether s is a known status.
func (s CafeStatus) Valid() bool {
	switch s {
	case CafeDraft, CafePublished, CafeArchived:
		return true
	}
	return false
}

// RoastLevel is a lookup value such as "light" or "espresso".
type RoastLevel struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// BrewingMethod is a lookup value such as "pour-over" or "aeropress".
type BrewingMethod struct {
	ID   uint   `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Cafe is a coffee shop listing.
type Cafe struct {
	ID             string
	Name           string
	Description    string
	Address        string
	City           string
	Lat            float64
	Lng            float64
	PriceTier      int
	Status         CafeStatus
	Website        string
	ImageURL       string
	OwnerID        *string
	RoastLevels    []RoastLevel
	BrewingMethods []BrewingMethod

	// Derived at query time from ratings; never persisted.
	AverageRating decimal.Decimal
	RatingCount   int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPublic reports whether anonymous visitors may see the listing.
func (c *Cafe) IsPublic() bool {
	return c.Status == CafePublished
}

// MapMarker is the minimal projection used to draw a cafe on a map.
type MapMarker struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Lat           float64         `json:"lat"`
	Lng           float64         `json:"lng"`
	PriceTier     int             `json:"priceTier"`
	AverageRating decimal.Decimal `json:"averageRating"`
}

// BoundingBox limits a map query to a rectangle.
type BoundingBox struct {
	MinLat, MinLng, MaxLat, MaxLng float64
}

// Valid reports whether the box has a positive extent.
func (b BoundingBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLng >= -180 && b.MaxLng <= 180
}
