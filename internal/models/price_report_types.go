package models

import "time"

// Moderation statuses of a price report.
const (
	StatusPendingApproval = "pending_approval"
	StatusApproved        = "approved"
	StatusRejected        = "rejected"
	StatusExpired         = "expired"
	StatusEdited          = "edited"
)

// Units a price can be quoted in.
const (
	UnitKg      = "kg"
	Unit100g    = "100g"
	UnitGram    = "g"
	UnitUnit    = "unit"
	UnitPackage = "package"
)

// statusTransitions lists the moves allowed when strict moderation is enabled.
var statusTransitions = map[string][]string{
	StatusPendingApproval: {StatusApproved, StatusRejected},
	StatusApproved:        {StatusEdited, StatusExpired, StatusRejected},
	StatusEdited:          {StatusApproved, StatusRejected, StatusPendingApproval},
	StatusRejected:        {StatusPendingApproval, StatusApproved},
	StatusExpired:         {StatusApproved, StatusPendingApproval},
}

// CanTransition reports whether a report may move from one status to another
// under the strict transition table. Staying in the same status is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PriceReport is the model for the 'price_reports' table.
type PriceReport struct {
	ID                  int64    `json:"id" db:"id"`
	ProductID           int64    `json:"product_id" db:"product_id" validate:"gt=0"`
	RetailerID          int64    `json:"retailer_id" db:"retailer_id" validate:"gt=0"`
	UserID              int64    `json:"user_id" db:"user_id" validate:"gt=0"`
	PriceSubmissionDate Date     `json:"price_submission_date" db:"price_submission_date"`
	PriceValidFrom      *Date    `json:"price_valid_from" db:"price_valid_from"`
	PriceValidTo        *Date    `json:"price_valid_to" db:"price_valid_to"`
	UnitForPrice        string   `json:"unit_for_price" db:"unit_for_price" validate:"oneof=kg 100g g unit package"`
	QuantityForPrice    float64  `json:"quantity_for_price" db:"quantity_for_price" validate:"gt=0"`
	RegularPrice        float64  `json:"regular_price" db:"regular_price" validate:"gt=0"`
	SalePrice           *float64 `json:"sale_price" db:"sale_price" validate:"omitempty,gt=0,ltefield=RegularPrice"`
	IsOnSale            bool     `json:"is_on_sale" db:"is_on_sale"`
	Source              string   `json:"source" db:"source"`
	ReportType          *string  `json:"report_type" db:"report_type"`
	Status              string   `json:"status" db:"status" validate:"oneof=pending_approval approved rejected expired edited"`
	Notes               *string  `json:"notes" db:"notes"`

	// ClaimUserID is user_id for a regular user's open claim and nil for admin inserts.
	ClaimUserID *int64 `json:"-" db:"claim_user_id"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Joins (Not in DB table, populated by queries)
	ProductName               string   `json:"product_name" db:"-"`
	RetailerName              string   `json:"retailer_name" db:"-"`
	UserName                  *string  `json:"user_name" db:"-"`
	DefaultWeightPerUnitGrams *float64 `json:"-" db:"-"`
	LikesCount                int      `json:"likes_count" db:"-"`
	CurrentUserLiked          bool     `json:"current_user_liked" db:"-"`
	CalculatedPricePer100g    *float64 `json:"calculated_price_per_100g" db:"-"`
}

// LikeSummary is the result of a like or unlike.
type LikeSummary struct {
	PriceID    int64 `json:"priceId"`
	UserID     int64 `json:"userId"`
	LikesCount int   `json:"likesCount"`
	UserLiked  bool  `json:"userLiked"`
}
