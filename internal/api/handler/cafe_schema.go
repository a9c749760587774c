package handler

import (
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

// cafeRequest is the admin create/replace body. Roast levels and brewing
// methods are referenced by slug.
type cafeRequest struct {
	Name           string   `json:"name"           validate:"required,max=200"`
	Description    string   `json:"description"    validate:"max=5000"`
	Address        string   `json:"address"        validate:"max=300"`
	City           string   `json:"city"           validate:"max=120"`
	Lat            *float64 `json:"lat"            validate:"required,latitude"`
	Lng            *float64 `json:"lng"            validate:"required,longitude"`
	PriceTier      int      `json:"priceTier"      validate:"required,gte=1,lte=4"`
	Status         string   `json:"status"         validate:"omitempty,oneof=draft published archived"`
	Website        string   `json:"website"        validate:"omitempty,url,max=500"`
	ImageURL       string   `json:"imageUrl"       validate:"omitempty,url,max=1024"`
	OwnerID        string   `json:"ownerId"        validate:"omitempty,uuid"`
	RoastLevels    []string `json:"roastLevels"    validate:"dive,required,max=40"`
	BrewingMethods []string `json:"brewingMethods" validate:"dive,required,max=40"`
}

func (r *cafeRequest) toInput() ports.CafeInput {
	return ports.CafeInput{
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		City:        r.City,
		Lat:         *r.Lat,
		Lng:         *r.Lng,
		PriceTier:   r.PriceTier,
		Status:      r.Status,
		Website:     r.Website,
		ImageURL:    r.ImageURL,
		OwnerID:     r.OwnerID,
		RoastSlugs:  r.RoastLevels,
		MethodSlugs: r.BrewingMethods,
	}
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published archived"`
}

type cafeResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	Address        string                 `json:"address"`
	City           string                 `json:"city"`
	Lat            float64                `json:"lat"`
	Lng            float64                `json:"lng"`
	PriceTier      int                    `json:"priceTier"`
	Status         string                 `json:"status"`
	Website        string                 `json:"website,omitempty"`
	ImageURL       string                 `json:"imageUrl,omitempty"`
	OwnerID        *string                `json:"ownerId,omitempty"`
	RoastLevels    []domain.RoastLevel    `json:"roastLevels"`
	BrewingMethods []domain.BrewingMethod `json:"brewingMethods"`
	AverageRating  float64                `json:"averageRating"`
	RatingCount    int64                  `json:"ratingCount"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

type cafeListResponse struct {
	Data []*cafeResponse `json:"data"`
	Meta pageMeta        `json:"meta"`
}

type markerResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	PriceTier     int     `json:"priceTier"`
	AverageRating float64 `json:"averageRating"`
}

type filtersResponse struct {
	RoastLevels    []domain.RoastLevel    `json:"roastLevels"`
	BrewingMethods []domain.BrewingMethod `json:"brewingMethods"`
}

func toCafeResponse(c *domain.Cafe) *cafeResponse {
	resp := &cafeResponse{
		ID:             c.ID,
		Name:           c.Name,
		Description:    c.Description,
		Address:        c.Address,
		City:           c.City,
		Lat:            c.Lat,
		Lng:            c.Lng,
		PriceTier:      c.PriceTier,
		Status:         string(c.Status),
		Website:        c.Website,
		ImageURL:       c.ImageURL,
		OwnerID:        c.OwnerID,
		RoastLevels:    c.RoastLevels,
		BrewingMethods: c.BrewingMethods,
		AverageRating:  c.AverageRating.Round(1).InexactFloat64(),
		RatingCount:    c.RatingCount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if resp.RoastLevels == nil {
		resp.RoastLevels = []domain.RoastLevel{}
	}
	if resp.BrewingMethods == nil {
		resp.BrewingMethods = []domain.BrewingMethod{}
	}
	return resp
}

func toCafeResponses(cafes []*domain.Cafe) []*cafeResponse {
	out := make([]*cafeResponse, 0, len(cafes))
	for _, c := range cafes {
		out = append(out, toCafeResponse(c))
	}
	return out
}

func toMarkerResponses(markers []domain.MapMarker) []markerResponse {
	out := make([]markerResponse, 0, len(markers))
	for _, m := range markers {
		out = append(out, markerResponse{
			ID:            m.ID,
			Name:          m.Name,
			Lat:           m.Lat,
			Lng:           m.Lng,
			PriceTier:     m.PriceTier,
			AverageRating: m.AverageRating.InexactFloat64(),
		})
	}
	return out
}
