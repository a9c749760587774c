package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/peaberry/peaberry-api/internal/core/domain"
	"github.com/peaberry/peaberry-api/internal/core/ports"
)

var _ ports.CafeRepository = (*CafeRepository)(nil)

// avgScoreExpr is the derived rating; cafes without ratings average 0.
const avgScoreExpr = "COALESCE(AVG(ratings.score), 0)"

// CafeRepository implements ports.CafeRepository with GORM.
type CafeRepository struct {
	db *gorm.DB
}

func NewCafeRepository(db *gorm.DB) *CafeRepository {
	return &CafeRepository{db: db}
}

// cafeAggregate is one row of the rating aggregate query.
type cafeAggregate struct {
	ID          string
	AvgRating   decimal.Decimal
	RatingCount int64
}

func (r *CafeRepository) Create(ctx context.Context, c *domain.Cafe) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roasts, methods, err := resolveLookups(tx, c)
		if err != nil {
			return err
		}

		row := toCafeRow(c)
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: owner does not exist", domain.ErrInvalidInput)
			}
			return fmt.Errorf("create cafe: %w", err)
		}
		return replaceLookups(tx, &row, roasts, methods)
	})
}

func (r *CafeRepository) Update(ctx context.Context, c *domain.Cafe) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		roasts, methods, err := resolveLookups(tx, c)
		if err != nil {
			return err
		}

		row := toCafeRow(c)
		res := tx.Model(&cafeRow{}).
			Where("id = ?", c.ID).
			Select("name", "description", "address", "city", "lat", "lng", "price_tier",
				"status", "website", "image_url", "owner_id", "updated_at").
			Updates(&row)
		if res.Error != nil {
			if isForeignKeyViolation(res.Error) {
				return fmt.Errorf("%w: owner does not exist", domain.ErrInvalidInput)
			}
			return fmt.Errorf("update cafe: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrCafeNotFound
		}
		return replaceLookups(tx, &row, roasts, methods)
	})
}

// Delete removes the cafe with its ratings, favorites and lookup links.
func (r *CafeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range []string{"cafe_roast_levels", "cafe_brewing_methods", "ratings", "favorites"} {
			if err := tx.Exec("DELETE FROM "+table+" WHERE cafe_id = ?", id).Error; err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		res := tx.Where("id = ?", id).Delete(&cafeRow{})
		if res.Error != nil {
			return fmt.Errorf("delete cafe: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrCafeNotFound
		}
		return nil
	})
}

func (r *CafeRepository) FindByID(ctx context.Context, id string) (*domain.Cafe, error) {
	cafes, err := loadCafes(r.db.WithContext(ctx), []string{id})
	if err != nil {
		return nil, err
	}
	if len(cafes) == 0 {
		return nil, domain.ErrCafeNotFound
	}
	return cafes[0], nil
}

// List filters and sorts on the aggregate query, then loads the page.
func (r *CafeRepository) List(ctx context.Context, f ports.ListCafesFilter) ([]*domain.Cafe, int64, error) {
	db := r.db.WithContext(ctx)
	base := r.filtered(db, f)

	var total int64
	if err := db.Table("(?) AS filtered", base.Select("cafes.id")).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count cafes: %w", err)
	}

	var ids []string
	if err := r.filtered(db, f).
		Select("cafes.id").
		Order(orderClause(f.Sort)).
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Pluck("cafes.id", &ids).Error; err != nil {
		return nil, 0, fmt.Errorf("list cafes: %w", err)
	}

	cafes, err := loadCafes(db, ids)
	if err != nil {
		return nil, 0, err
	}
	return cafes, total, nil
}

// filtered builds the cafes LEFT JOIN ratings query grouped by cafe, with every filter applied.
func (r *CafeRepository) filtered(db *gorm.DB, f ports.ListCafesFilter) *gorm.DB {
	q := db.Table("cafes").
		Joins("LEFT JOIN ratings ON ratings.cafe_id = cafes.id").
		Group("cafes.id")

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where("cafes.status IN ?", statuses)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(cafes.name) LIKE ? OR LOWER(cafes.description) LIKE ?", like, like)
	}
	if f.City != "" {
		q = q.Where("LOWER(cafes.city) = ?", strings.ToLower(f.City))
	}
	if f.PriceTier != 0 {
		q = q.Where("cafes.price_tier = ?", f.PriceTier)
	}
	if len(f.RoastSlugs) > 0 {
		q = q.Where("cafes.id IN (?)", db.Table("cafe_roast_levels").
			Select("cafe_roast_levels.cafe_id").
			Joins("JOIN roast_levels ON roast_levels.id = cafe_roast_levels.roast_level_id").
			Where("roast_levels.slug IN ?", f.RoastSlugs))
	}
	if len(f.MethodSlugs) > 0 {
		q = q.Where("cafes.id IN (?)", db.Table("cafe_brewing_methods").
			Select("cafe_brewing_methods.cafe_id").
			Joins("JOIN brewing_methods ON brewing_methods.id = cafe_brewing_methods.brewing_method_id").
			Where("brewing_methods.slug IN ?", f.MethodSlugs))
	}
	if f.MinRating > 0 {
		q = q.Having(avgScoreExpr+" >= ?", f.MinRating)
	}
	return q
}

func orderClause(sort string) string {
	switch sort {
	case ports.SortByRating:
		return avgScoreExpr + " DESC, COUNT(ratings.id) DESC, cafes.name ASC"
	case ports.SortByNewest:
		return "cafes.created_at DESC, cafes.name ASC"
	default:
		return "cafes.name ASC"
	}
}

func (r *CafeRepository) Markers(ctx context.Context, box *domain.BoundingBox) ([]domain.MapMarker, error) {
	type markerRow struct {
		ID        string
		Name      string
		Lat       float64
		Lng       float64
		PriceTier int
		AvgRating decimal.Decimal
	}

	q := r.db.WithContext(ctx).Table("cafes").
		Select("cafes.id, cafes.name, cafes.lat, cafes.lng, cafes.price_tier, "+avgScoreExpr+" AS avg_rating").
		Joins("LEFT JOIN ratings ON ratings.cafe_id = cafes.id").
		Where("cafes.status = ?", string(domain.CafePublished)).
		Group("cafes.id, cafes.name, cafes.lat, cafes.lng, cafes.price_tier")
	if box != nil {
		q = q.Where("cafes.lat BETWEEN ? AND ? AND cafes.lng BETWEEN ? AND ?", box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	}

	var rows []markerRow
	if err := q.Order("cafes.name").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("cafe markers: %w", err)
	}

	markers := make([]domain.MapMarker, 0, len(rows))
	for _, m := range rows {
		markers = append(markers, domain.MapMarker{
			ID:            m.ID,
			Name:          m.Name,
			Lat:           m.Lat,
			Lng:           m.Lng,
			PriceTier:     m.PriceTier,
			AverageRating: m.AvgRating.Round(1),
		})
	}
	return markers, nil
}

func (r *CafeRepository) RoastLevels(ctx context.Context) ([]domain.RoastLevel, error) {
	var rows []roastLevelRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("roast levels: %w", err)
	}
	out := make([]domain.RoastLevel, 0, len(rows))
	for _, rl := range rows {
		out = append(out, domain.RoastLevel{ID: rl.ID, Slug: rl.Slug, Name: rl.Name})
	}
	return out, nil
}

func (r *CafeRepository) BrewingMethods(ctx context.Context) ([]domain.BrewingMethod, error) {
	var rows []brewingMethodRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("brewing methods: %w", err)
	}
	out := make([]domain.BrewingMethod, 0, len(rows))
	for _, bm := range rows {
		out = append(out, domain.BrewingMethod{ID: bm.ID, Slug: bm.Slug, Name: bm.Name})
	}
	return out, nil
}

// loadCafes fetches cafes with their lookups and derived rating, preserving
// the order of ids. Unknown ids are skipped.
func loadCafes(db *gorm.DB, ids []string) ([]*domain.Cafe, error) {
	if len(ids) == 0 {
		return []*domain.Cafe{}, nil
	}

	var rows []cafeRow
	if err := db.Preload("RoastLevels", func(tx *gorm.DB) *gorm.DB { return tx.Order("roast_levels.id") }).
		Preload("BrewingMethods", func(tx *gorm.DB) *gorm.DB { return tx.Order("brewing_methods.id") }).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load cafes: %w", err)
	}

	var aggs []cafeAggregate
	if err := db.Table("ratings").
		Select("cafe_id AS id, AVG(score) AS avg_rating, COUNT(*) AS rating_count").
		Where("cafe_id IN ?", ids).
		Group("cafe_id").
		Scan(&aggs).Error; err != nil {
		return nil, fmt.Errorf("load cafe ratings: %w", err)
	}
	byAgg := make(map[string]cafeAggregate, len(aggs))
	for _, a := range aggs {
		byAgg[a.ID] = a
	}

	byID := make(map[string]*domain.Cafe, len(rows))
	for i := range rows {
		c := rows[i].toDomain()
		if a, ok := byAgg[c.ID]; ok {
			c.AverageRating = a.AvgRating.Round(1)
			c.RatingCount = a.RatingCount
		}
		byID[c.ID] = c
	}

	out := make([]*domain.Cafe, 0, len(rows))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// resolveLookups maps the slugs on c to lookup rows. Unknown slugs are rejected.
func resolveLookups(tx *gorm.DB, c *domain.Cafe) ([]roastLevelRow, []brewingMethodRow, error) {
	roastSlugs := make([]string, 0, len(c.RoastLevels))
	for _, rl := range c.RoastLevels {
		roastSlugs = append(roastSlugs, rl.Slug)
	}
	methodSlugs := make([]string, 0, len(c.BrewingMethods))
	for _, bm := range c.BrewingMethods {
		methodSlugs = append(methodSlugs, bm.Slug)
	}

	var roasts []roastLevelRow
	if len(roastSlugs) > 0 {
		if err := tx.Where("slug IN ?", roastSlugs).Find(&roasts).Error; err != nil {
			return nil, nil, fmt.Errorf("resolve roast levels: %w", err)
		}
		if missing := missingSlugs(roastSlugs, roastSlugsOf(roasts)); len(missing) > 0 {
			return nil, nil, fmt.Errorf("%w: unknown roast levels %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
		}
	}

	var methods []brewingMethodRow
	if len(methodSlugs) > 0 {
		if err := tx.Where("slug IN ?", methodSlugs).Find(&methods).Error; err != nil {
			return nil, nil, fmt.Errorf("resolve brewing methods: %w", err)
		}
		if missing := missingSlugs(methodSlugs, methodSlugsOf(methods)); len(missing) > 0 {
			return nil, nil, fmt.Errorf("%w: unknown brewing methods %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
		}
	}
	return roasts, methods, nil
}

func replaceLookups(tx *gorm.DB, row *cafeRow, roasts []roastLevelRow, methods []brewingMethodRow) error {
	roastAssoc := tx.Model(row).Association("RoastLevels")
	var err error
	if len(roasts) == 0 {
		err = roastAssoc.Clear()
	} else {
		err = roastAssoc.Replace(roasts)
	}
	if err != nil {
		return fmt.Errorf("set roast levels: %w", err)
	}

	methodAssoc := tx.Model(row).Association("BrewingMethods")
	if len(methods) == 0 {
		err = methodAssoc.Clear()
	} else {
		err = methodAssoc.Replace(methods)
	}
	if err != nil {
		return fmt.Errorf("set brewing methods: %w", err)
	}
	return nil
}

func roastSlugsOf(rows []roastLevelRow) map[string]struct{} {
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		out[r.Slug] = struct{}{}
	}
	return out
}

func methodSlugsOf(rows []brewingMethodRow) map[string]struct{} {
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		out[r.Slug] = struct{}{}
	}
	return out
}

func missingSlugs(want []string, have map[string]struct{}) []string {
	var missing []string
	for _, s := range want {
		if _, ok := have[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}
