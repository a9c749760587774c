package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedRoastLevels = []roastLevelRow{
	{Slug: "light", Name: "Light"},
	{Slug: "medium", Name: "Medium"},
	{Slug: "medium-dark", Name: "Medium-dark"},
	{Slug: "dark", Name: "Dark"},
	{Slug: "espresso", Name: "Espresso roast"},
}

var seedBrewingMethods = []brewingMethodRow{
	{Slug: "espresso", Name: "Espresso"},
	{Slug: "pour-over", Name: "Pour over"},
	{Slug: "french-press", Name: "French press"},
	{Slug: "aeropress", Name: "AeroPress"},
	{Slug: "chemex", Name: "Chemex"},
	{Slug: "siphon", Name: "Siphon"},
	{Slug: "cold-brew", Name: "Cold brew"},
}

// Migrate creates or updates the schema and seeds the lookup tables.
// Seeding is idempotent.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(
		&userRow{},
		&roastLevelRow{},
		&brewingMethodRow{},
		&cafeRow{},
		&ratingRow{},
		&favoriteRow{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	roasts := append([]roastLevelRow(nil), seedRoastLevels...)
	methods := append([]brewingMethodRow(nil), seedBrewingMethods...)

	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&roasts).Error; err != nil {
		return fmt.Errorf("seed roast levels: %w", err)
	}
	if err := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&methods).Error; err != nil {
		return fmt.Errorf("seed brewing methods: %w", err)
	}
	return nil
}
