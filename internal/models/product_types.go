package models

import (
	"time"
)

// Product is the model for the 'products' table.
// Nullable columns are pointers so they serialize as JSON null.
type Product struct {
	ID                        int64    `json:"id" db:"id"`
	Name                      string   `json:"name" db:"name" validate:"required"`
	Slug                      string   `json:"slug" db:"slug"`
	Brand                     *string  `json:"brand" db:"brand"`
	Category                  *string  `json:"category" db:"category"`
	UnitOfMeasure             string   `json:"unit_of_measure" db:"unit_of_measure" validate:"required"`
	DefaultWeightPerUnitGrams *float64 `json:"default_weight_per_unit_grams" db:"default_weight_per_unit_grams" validate:"omitempty,gt=0"`
	IsActive                  bool     `json:"is_active" db:"is_active"`

	// --- Descriptive ---
	OriginCountry    *string `json:"origin_country" db:"origin_country"`
	KosherLevel      *string `json:"kosher_level" db:"kosher_level"`
	AnimalType       *string `json:"animal_type" db:"animal_type"`
	CutType          *string `json:"cut_type" db:"cut_type"`
	Description      *string `json:"description" db:"description"`
	ShortDescription *string `json:"short_description" db:"short_description"`
	ImageURL         *string `json:"image_url" db:"image_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Computed (not in DB table, populated by the catalog service)
	MinPricePer100g *float64       `json:"min_price_per_100g" db:"-"`
	PriceExamples   []PriceExample `json:"price_examples,omitempty" db:"-"`
}

// PriceExample is one approved report shown on a product detail page.
type PriceExample struct {
	PriceID                int64    `json:"price_id"`
	RetailerID             int64    `json:"retailer_id"`
	Retailer               string   `json:"retailer"`
	RegularPrice           float64  `json:"regular_price"`
	SalePrice              *float64 `json:"sale_price"`
	IsOnSale               bool     `json:"is_on_sale"`
	UnitForPrice           string   `json:"unit_for_price"`
	QuantityForPrice       float64  `json:"quantity_for_price"`
	SubmissionDate         Date     `json:"submission_date"`
	ValidFrom              *Date    `json:"valid_from"`
	ValidTo                *Date    `json:"valid_to"`
	Notes                  *string  `json:"notes"`
	LikesCount             int      `json:"likes_count"`
	CurrentUserLiked       bool     `json:"current_user_liked"`
	CalculatedPricePer100g *float64 `json:"calculated_price_per_100g"`
}
