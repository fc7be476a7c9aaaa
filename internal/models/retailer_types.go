package models

import "time"

// Retailer is the model for the 'retailers' table.
type Retailer struct {
	ID           int64    `json:"id" db:"id"`
	Name         string   `json:"name" db:"name" validate:"required"`
	Slug         string   `json:"slug" db:"slug"`
	Chain        *string  `json:"chain" db:"chain"`
	Address      *string  `json:"address" db:"address"`
	Type         string   `json:"type" db:"type" validate:"required"`
	GeoLat       *float64 `json:"geo_lat" db:"geo_lat" validate:"omitempty,latitude"`
	GeoLon       *float64 `json:"geo_lon" db:"geo_lon" validate:"omitempty,longitude"`
	OpeningHours *string  `json:"opening_hours" db:"opening_hours"`
	UserRating   *float64 `json:"user_rating" db:"user_rating" validate:"omitempty,gte=0,lte=5"`
	RatingCount  int      `json:"rating_count" db:"rating_count" validate:"gte=0"`
	Phone        *string  `json:"phone" db:"phone"`
	Website      *string  `json:"website" db:"website"`
	Notes        *string  `json:"notes" db:"notes"`
	IsActive     bool     `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
