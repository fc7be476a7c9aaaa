// Package store persists users, catalog entities, price reports and likes.
// MySQLStore is the production implementation; MemoryStore backs tests and
// STORE_DRIVER=memory.
package store

import (
	"context"
	"errors"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("duplicate key")
	ErrReferenced       = errors.New("record is referenced by other records")
	ErrInvalidReference = errors.New("referenced record does not exist")
	ErrConstraint       = errors.New("constraint violation")
)

type UserStore interface {
	// CreateUser inserts u and fills its ID and timestamps.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// ProductFilter narrows a product listing. Empty strings and nil pointers
// mean "no filter".
type ProductFilter struct {
	Category    string
	Brand       string
	AnimalType  string
	KosherLevel string
	NameLike    string
	IsActive    *bool
	Page        models.Page
	Sort        models.Sort
}

type ProductStore interface {
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	// UpdateProduct saves every column of p.
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type RetailerFilter struct {
	Chain    string
	Type     string
	NameLike string
	IsActive *bool
	Page     models.Page
	Sort     models.Sort
}

type RetailerStore interface {
	ListRetailers(ctx context.Context, f RetailerFilter) ([]models.Retailer, int, error)
	GetRetailer(ctx context.Context, id int64) (*models.Retailer, error)
	CreateRetailer(ctx context.Context, r *models.Retailer) error
	UpdateRetailer(ctx context.Context, r *models.Retailer) error
	DeleteRetailer(ctx context.Context, id int64) error
}

// ReportFilter narrows a price report listing. ViewerID decides
// current_user_liked and is 0 for anonymous callers.
type ReportFilter struct {
	ProductID  *int64
	RetailerID *int64
	UserID     *int64
	OnSale     *bool
	DateFrom   *models.Date
	DateTo     *models.Date
	Status     string
	Search     string
	ViewerID   int64
	Page       models.Page
	Sort       models.Sort
}

// Columns a regular user's resubmission may overwrite on the open claim in
// addition to the ones that are always refreshed.
const (
	ColSubmissionDate = "price_submission_date"
	ColValidFrom      = "price_valid_from"
	ColValidTo        = "price_valid_to"
	ColQuantity       = "quantity_for_price"
	ColSalePrice      = "sale_price"
	ColIsOnSale       = "is_on_sale"
	ColReportType     = "report_type"
	ColNotes          = "notes"
)

var upsertOverwritable = map[string]bool{
	ColSubmissionDate: true,
	ColValidFrom:      true,
	ColValidTo:        true,
	ColQuantity:       true,
	ColSalePrice:      true,
	ColIsOnSale:       true,
	ColReportType:     true,
	ColNotes:          true,
}

type PriceStore interface {
	ListReports(ctx context.Context, f ReportFilter) ([]models.PriceReport, int, error)
	// GetReport returns the report with its joined names and like data
	// as seen by viewerID.
	GetReport(ctx context.Context, id, viewerID int64) (*models.PriceReport, error)
	// InsertReport always inserts a new row and fills r.ID.
	InsertReport(ctx context.Context, r *models.PriceReport) error
	// UpsertOpenReport atomically inserts r as the user's open claim on its
	// product and retailer, or refreshes the existing claim. On refresh the
	// unit, regular price, source and status are always replaced; the
	// columns named in overwrite are replaced too.
	UpsertOpenReport(ctx context.Context, r *models.PriceReport, overwrite []string) (id int64, created bool, err error)
	UpdateReport(ctx context.Context, r *models.PriceReport) error
	UpdateReportStatus(ctx context.Context, id int64, status string) error
	DeleteReport(ctx context.Context, id int64) error
	ReportExists(ctx context.Context, id int64) (bool, error)

	// AddLike and RemoveLike are idempotent.
	AddLike(ctx context.Context, userID, priceID int64) error
	RemoveLike(ctx context.Context, userID, priceID int64) error
	CountLikes(ctx context.Context, priceID int64) (int, error)

	// ApprovedPricesForProducts returns the approved reports of the given
	// products still valid on asOf, with the product unit weight joined.
	ApprovedPricesForProducts(ctx context.Context, productIDs []int64, asOf models.Date) ([]models.PriceReport, error)
	// ProductPriceExamples returns approved reports of a product at active
	// retailers, with like data as seen by viewerID.
	ProductPriceExamples(ctx context.Context, productID, viewerID int64) ([]models.PriceReport, error)
}

// Store is everything the services need from persistence.
type Store interface {
	UserStore
	ProductStore
	RetailerStore
	PriceStore
	Close() error
}

// filterOverwrite keeps the known overwritable columns, dropping duplicates.
func filterOverwrite(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if upsertOverwritable[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
