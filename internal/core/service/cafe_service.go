package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

type CafeService struct {
	repo   ports.CafeRepository
	logger zerolog.Logger
}

func NewCafeService(repo ports.CafeRepository, logger zerolog.Logger) *CafeService {
	return &CafeService{repo: repo, logger: logger}
}

// List returns a page of cafes. Non-admins only ever see published listings.
func (s *CafeService) List(ctx context.Context, in ports.ListCafesInput) (*ports.ListCafesResult, error) {
	page, limit := normalizePage(in.Page, in.Limit)

	sort := in.Sort
	switch sort {
	case "":
		sort = ports.SortByName
	case ports.SortByName, ports.SortByRating, ports.SortByNewest:
	default:
		return nil, fmt.Errorf("%w: sort must be one of name, rating, newest", domain.ErrInvalidInput)
	}
	if in.MinRating < 0 || in.MinRating > domain.MaxScore {
		return nil, fmt.Errorf("%w: minRating must be between 0 and %d", domain.ErrInvalidInput, domain.MaxScore)
	}
	if in.PriceTier != 0 && (in.PriceTier < domain.MinPriceTier || in.PriceTier > domain.MaxPriceTier) {
		return nil, fmt.Errorf("%w: priceTier must be between %d and %d", domain.ErrInvalidInput, domain.MinPriceTier, domain.MaxPriceTier)
	}

	statuses := []domain.CafeStatus{domain.CafePublished}
	if in.Role == domain.RoleAdmin {
		statuses = nil
		for _, st := range in.Statuses {
			if !st.Valid() {
				return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, st)
			}
			statuses = append(statuses, st)
		}
	}

	filter := ports.ListCafesFilter{
		Search:      strings.TrimSpace(in.Search),
		City:        strings.TrimSpace(in.City),
		PriceTier:   in.PriceTier,
		RoastSlugs:  uniqueSlugs(in.RoastSlugs),
		MethodSlugs: uniqueSlugs(in.MethodSlugs),
		MinRating:   in.MinRating,
		Statuses:    statuses,
		Sort:        sort,
		Page:        page,
		Limit:       limit,
	}

	cafes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list cafes: %w", err)
	}
	return &ports.ListCafesResult{
		Items:      cafes,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Get hides unpublished listings from everyone but admins.
func (s *CafeService) Get(ctx context.Context, id, role string) (*domain.Cafe, error) {
	cafe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cafe.IsPublic() && role != domain.RoleAdmin {
		return nil, domain.ErrCafeNotFound
	}
	return cafe, nil
}

func (s *CafeService) Markers(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error) {
	if box != nil && !box.Valid() {
		return nil, fmt.Errorf("%w: invalid bounding box", domain.ErrInvalidInput)
	}
	markers, err := s.repo.Markers(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("cafe markers: %w", err)
	}
	return markers, nil
}

func (s *CafeService) Filters(ctx context.Context) (*ports.Filters, error) {
	roasts, err := s.repo.RoastLevels(ctx)
	if err != nil {
		return nil, fmt.Errorf("roast levels: %w", err)
	}
	methods, err := s.repo.BrewingMethods(ctx)
	if err != nil {
		return nil, fmt.Errorf("brewing methods: %w", err)
	}
	return &ports.Filters{RoastLevels: roasts, BrewingMethods: methods}, nil
}

func (s *CafeService) Create(ctx context.Context, in ports.CafeInput) (*domain.Cafe, error) {
	if in.Status == "" {
		in.Status = string(domain.CafeDraft)
	}
	cafe := &domain.Cafe{}
	if err := applyCafeInput(cafe, in); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, cafe); err != nil {
		return nil, fmt.Errorf("create cafe: %w", err)
	}
	s.logger.Info().Str("cafe_id", cafe.ID).Str("name", cafe.Name).Msg("cafe created")
	return s.repo.FindByID(ctx, cafe.ID)
}

func (s *CafeService) Update(ctx context.Context, id string, in ports.CafeInput) (*domain.Cafe, error) {
	cafe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = string(cafe.Status)
	}
	if err := applyCafeInput(cafe, in); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, cafe); err != nil {
		return nil, fmt.Errorf("update cafe: %w", err)
	}
	return s.repo.FindByID(ctx, id)
}

func (s *CafeService) SetStatus(ctx context.Context, id, status string) (*domain.Cafe, error) {
	st := domain.CafeStatus(status)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: status must be draft, published or archived", domain.ErrInvalidInput)
	}
	cafe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cafe.Status == st {
		return cafe, nil
	}

	prev := cafe.Status
	cafe.Status = st
	if err := s.repo.Update(ctx, cafe); err != nil {
		return nil, fmt.Errorf("set cafe status: %w", err)
	}
	s.logger.Info().Str("cafe_id", id).Str("from", string(prev)).Str("to", status).Msg("cafe status changed")
	return cafe, nil
}

func (s *CafeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("cafe_id", id).Msg("cafe deleted")
	return nil
}

// applyCafeInput validates in and copies it onto c.
func applyCafeInput(c *domain.Cafe, in ports.CafeInput) error {
	name := strings.TrimSpace(in.Name)
	city := strings.TrimSpace(in.City)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case city == "":
		return fmt.Errorf("%w: city is required", domain.ErrInvalidInput)
	case in.Lat < -90 || in.Lat > 90 || in.Lng < -180 || in.Lng > 180:
		return fmt.Errorf("%w: coordinates out of range", domain.ErrInvalidInput)
	case in.PriceTier < domain.MinPriceTier || in.PriceTier > domain.MaxPriceTier:
		return fmt.Errorf("%w: priceTier must be between %d and %d", domain.ErrInvalidInput, domain.MinPriceTier, domain.MaxPriceTier)
	case !domain.CafeStatus(in.Status).Valid():
		return fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, in.Status)
	}

	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	c.Address = strings.TrimSpace(in.Address)
	c.City = city
	c.Lat = in.Lat
	c.Lng = in.Lng
	c.PriceTier = in.PriceTier
	c.Status = domain.CafeStatus(in.Status)
	c.Website = strings.TrimSpace(in.Website)
	c.ImageURL = strings.TrimSpace(in.ImageURL)
	c.OwnerID = nil
	if in.OwnerID != "" {
		owner := in.OwnerID
		c.OwnerID = &owner
	}

	c.RoastLevels = c.RoastLevels[:0]
	for _, slug := range uniqueSlugs(in.RoastSlugs) {
		c.RoastLevels = append(c.RoastLevels, domain.RoastLevel{Slug: slug})
	}
	c.BrewingMethods = c.BrewingMethods[:0]
	for _, slug := range uniqueSlugs(in.MethodSlugs) {
		c.BrewingMethods = append(c.BrewingMethods, domain.BrewingMethod{Slug: slug})
	}
	return nil
}

func uniqueSlugs(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
