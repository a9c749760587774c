package postgres

import (
	"fmt"
	"time"

	"github.com/peaberry/peaberry-api/internal/core/domain"
)

// userRow is the users table. Exactly one of PasswordHash and ProviderUID is set.
type userRow struct {
	ID                  string     `gorm:"primaryKey;size:36"`
	Email               string     `gorm:"size:255;not null;uniqueIndex"`
	DisplayName         string     `gorm:"size:120;not null"`
	Role                string     `gorm:"size:20;not null;default:user;index"`
	PasswordHash        *string    `gorm:"size:255;check:chk_users_identity,(password_hash IS NULL) <> (provider_uid IS NULL)"`
	ProviderID          *string    `gorm:"size:64"`
	ProviderUID         *string    `gorm:"size:128;uniqueIndex"`
	PhotoURL            *string    `gorm:"size:1024"`
	OrphanedAt          *time.Time `gorm:"index"`
	ResetTokenHash      *string    `gorm:"size:64;index"`
	ResetTokenExpiresAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time

	Ratings   []ratingRow   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Favorites []favoriteRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (userRow) TableName() string { return "users" }

type roastLevelRow struct {
	ID   uint   `gorm:"primaryKey"`
	Slug string `gorm:"size:40;not null;uniqueIndex"`
	Name string `gorm:"size:80;not null"`
}

func (roastLevelRow) TableName() string { return "roast_levels" }

type brewingMethodRow struct {
	ID   uint   `gorm:"primaryKey"`
	Slug string `gorm:"size:40;not null;uniqueIndex"`
	Name string `gorm:"size:80;not null"`
}

func (brewingMethodRow) TableName() string { return "brewing_methods" }

type cafeRow struct {
	ID          string  `gorm:"primaryKey;size:36"`
	Name        string  `gorm:"size:200;not null;index"`
	Description string  `gorm:"type:text"`
	Address     string  `gorm:"size:300"`
	City        string  `gorm:"size:120;index"`
	Lat         float64 `gorm:"not null;index:idx_cafes_location"`
	Lng         float64 `gorm:"not null;index:idx_cafes_location"`
	PriceTier   int     `gorm:"not null;check:chk_cafes_price_tier,price_tier BETWEEN 1 AND 4"`
	Status      string  `gorm:"size:20;not null;default:draft;index"`
	Website     string  `gorm:"size:500"`
	ImageURL    string  `gorm:"size:1024"`
	OwnerID     *string `gorm:"size:36;index"`
	Owner       *userRow `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	RoastLevels    []roastLevelRow    `gorm:"many2many:cafe_roast_levels;joinForeignKey:CafeID;joinReferences:RoastLevelID;constraint:OnDelete:CASCADE"`
	BrewingMethods []brewingMethodRow `gorm:"many2many:cafe_brewing_methods;joinForeignKey:CafeID;joinReferences:BrewingMethodID;constraint:OnDelete:CASCADE"`
	Ratings        []ratingRow        `gorm:"foreignKey:CafeID;constraint:OnDelete:CASCADE"`
	Favorites      []favoriteRow      `gorm:"foreignKey:CafeID;constraint:OnDelete:CASCADE"`
}

func (cafeRow) TableName() string { return "cafes" }

// ratingRow is unique per (user_id, cafe_id).
type ratingRow struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"size:36;not null;uniqueIndex:uq_ratings_user_cafe"`
	CafeID    string `gorm:"size:36;not null;uniqueIndex:uq_ratings_user_cafe;index"`
	Score     int    `gorm:"not null;check:chk_ratings_score,score BETWEEN 1 AND 5"`
	Review    string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ratingRow) TableName() string { return "ratings" }

// favoriteRow's composite primary key makes (user_id, cafe_id) unique.
type favoriteRow struct {
	UserID    string `gorm:"primaryKey;size:36"`
	CafeID    string `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}

func (favoriteRow) TableName() string { return "favorites" }

// ---- user mapping ----

func toUserRow(u *domain.User) userRow {
	row := userRow{
		ID:                  u.ID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		Role:                u.Role,
		ResetTokenHash:      nullable(u.ResetTokenHash),
		ResetTokenExpiresAt: u.ResetTokenExpiresAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
	switch id := u.Identity.(type) {
	case domain.LocalCredential:
		row.PasswordHash = nullable(id.PasswordHash)
	case domain.ProviderLink:
		row.ProviderID = nullable(id.ProviderID)
		row.ProviderUID = nullable(id.ProviderUID)
		row.PhotoURL = nullable(id.PhotoURL)
		row.OrphanedAt = id.OrphanedAt
	}
	return row
}

func (r *userRow) toDomain() (*domain.User, error) {
	u := &domain.User{
		ID:                  r.ID,
		Email:               r.Email,
		DisplayName:         r.DisplayName,
		Role:                r.Role,
		ResetTokenHash:      deref(r.ResetTokenHash),
		ResetTokenExpiresAt: r.ResetTokenExpiresAt,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	switch {
	case r.PasswordHash != nil && r.ProviderUID == nil:
		u.Identity = domain.LocalCredential{PasswordHash: *r.PasswordHash}
	case r.ProviderUID != nil && r.PasswordHash == nil:
		u.Identity = domain.ProviderLink{
			ProviderID:  deref(r.ProviderID),
			ProviderUID: *r.ProviderUID,
			PhotoURL:    deref(r.PhotoURL),
			OrphanedAt:  r.OrphanedAt,
		}
	default:
		return nil, fmt.Errorf("user %s: %w", r.ID, domain.ErrInvalidIdentity)
	}
	return u, nil
}

func toUsers(rows []userRow) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(rows))
	for i := range rows {
		u, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// ---- cafe mapping ----

func toCafeRow(c *domain.Cafe) cafeRow {
	return cafeRow{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Address:     c.Address,
		City:        c.City,
		Lat:         c.Lat,
		Lng:         c.Lng,
		PriceTier:   c.PriceTier,
		Status:      string(c.Status),
		Website:     c.Website,
		ImageURL:    c.ImageURL,
		OwnerID:     c.OwnerID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (r *cafeRow) toDomain() *domain.Cafe {
	c := &domain.Cafe{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		City:        r.City,
		Lat:         r.Lat,
		Lng:         r.Lng,
		PriceTier:   r.PriceTier,
		Status:      domain.CafeStatus(r.Status),
		Website:     r.Website,
		ImageURL:    r.ImageURL,
		OwnerID:     r.OwnerID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	for _, rl := range r.RoastLevels {
		c.RoastLevels = append(c.RoastLevels, domain.RoastLevel{ID: rl.ID, Slug: rl.Slug, Name: rl.Name})
	}
	for _, bm := range r.BrewingMethods {
		c.BrewingMethods = append(c.BrewingMethods, domain.BrewingMethod{ID: bm.ID, Slug: bm.Slug, Name: bm.Name})
	}
	return c
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
