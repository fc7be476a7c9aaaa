package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/store"
	"github.com/01moynul/bashrometer-golang/internal/validation"
)

// StatusAll lifts the status filter for admin listings.
const StatusAll = "all"

// CreateReportInput is the body of a price report submission.
type CreateReportInput struct {
	ProductID           int64        `json:"product_id" validate:"required"`
	RetailerID          int64        `json:"retailer_id" validate:"required"`
	PriceSubmissionDate *models.Date `json:"price_submission_date"`
	PriceValidFrom      *models.Date `json:"price_valid_from"`
	PriceValidTo        *models.Date `json:"price_valid_to"`
	UnitForPrice        string       `json:"unit_for_price" validate:"required"`
	QuantityForPrice    *float64     `json:"quantity_for_price"`
	RegularPrice        float64      `json:"regular_price" validate:"required"`
	SalePrice           *float64     `json:"sale_price"`
	IsOnSale            *bool        `json:"is_on_sale"`
	Source              string       `json:"source" validate:"required"`
	ReportType          *string      `json:"report_type"`
	Status              *string      `json:"status"`
	Notes               *string      `json:"notes"`
}

// ReportPatch is a partial price report update.
type ReportPatch struct {
	ProductID           models.Nullable[int64]       `json:"product_id"`
	RetailerID          models.Nullable[int64]       `json:"retailer_id"`
	UserID              models.Nullable[int64]       `json:"user_id"`
	PriceSubmissionDate models.Nullable[models.Date] `json:"price_submission_date"`
	PriceValidFrom      models.Nullable[models.Date] `json:"price_valid_from"`
	PriceValidTo        models.Nullable[models.Date] `json:"price_valid_to"`
	UnitForPrice        models.Nullable[string]      `json:"unit_for_price"`
	QuantityForPrice    models.Nullable[float64]     `json:"quantity_for_price"`
	RegularPrice        models.Nullable[float64]     `json:"regular_price"`
	SalePrice           models.Nullable[float64]     `json:"sale_price"`
	IsOnSale            models.Nullable[bool]        `json:"is_on_sale"`
	Source              models.Nullable[string]      `json:"source"`
	ReportType          models.Nullable[string]      `json:"report_type"`
	Status              models.Nullable[string]      `json:"status"`
	Notes               models.Nullable[string]      `json:"notes"`
}

// adminOnlyFields lists the keys present in the patch that only admins may send.
func (p ReportPatch) adminOnlyFields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.ProductID.Set, "product_id")
	add(p.RetailerID.Set, "retailer_id")
	add(p.UserID.Set, "user_id")
	add(p.PriceSubmissionDate.Set, "price_submission_date")
	add(p.Source.Set, "source")
	add(p.ReportType.Set, "report_type")
	add(p.Status.Set, "status")
	return fields
}

func (p ReportPatch) empty() bool {
	return len(p.adminOnlyFields()) == 0 && !(p.PriceValidFrom.Set || p.PriceValidTo.Set ||
		p.UnitForPrice.Set || p.QuantityForPrice.Set || p.RegularPrice.Set ||
		p.SalePrice.Set || p.IsOnSale.Set || p.Notes.Set)
}

// ReportQuery is a listing request. MinPrice and MaxPrice filter the
// returned page on the normalized price.
type ReportQuery struct {
	Filter   store.ReportFilter
	MinPrice *float64
	MaxPrice *float64
}

type PriceService struct {
	prices            store.PriceStore
	strictTransitions bool
	norm              normalizer
	today             func() models.Date
}

func NewPriceService(prices store.PriceStore, strictTransitions bool, log *zap.Logger) *PriceService {
	return &PriceService{
		prices:            prices,
		strictTransitions: strictTransitions,
		norm:              newNormalizer(log),
		today:             models.Today,
	}
}

// Create records a price observation. Admin submissions always insert a
// new row with the requested status (approved by default). Other callers
// keep one open claim per product and retailer, refreshed in place and
// always pending approval. created is false when a claim was refreshed.
func (s *PriceService) Create(ctx context.Context, caller *models.Identity, in CreateReportInput) (report *models.PriceReport, created bool, err error) {
	if caller == nil {
		return nil, false, apperr.Unauthenticated("Access denied. No token provided.")
	}

	// 1. --- Required fields ---
	in.UnitForPrice = strings.ToLower(strings.TrimSpace(in.UnitForPrice))
	in.Source = strings.TrimSpace(in.Source)
	if err := validation.Struct(in, createReportMessages); err != nil {
		return nil, false, err
	}

	// 2. --- Build the row ---
	r := &models.PriceReport{
		ProductID:           in.ProductID,
		RetailerID:          in.RetailerID,
		UserID:              caller.UserID,
		PriceSubmissionDate: s.today(),
		PriceValidFrom:      in.PriceValidFrom.OrNil(),
		PriceValidTo:        in.PriceValidTo.OrNil(),
		UnitForPrice:        in.UnitForPrice,
		QuantityForPrice:    1,
		RegularPrice:        in.RegularPrice,
		SalePrice:           in.SalePrice,
		Source:              in.Source,
		ReportType:          trimmed(in.ReportType),
		Status:              models.StatusPendingApproval,
		Notes:               in.Notes,
	}
	if d := in.PriceSubmissionDate.OrNil(); d != nil {
		r.PriceSubmissionDate = *d
	}
	if in.QuantityForPrice != nil {
		r.QuantityForPrice = *in.QuantityForPrice
	}
	if in.IsOnSale != nil {
		r.IsOnSale = *in.IsOnSale
	}
	if caller.IsAdmin() {
		r.Status = models.StatusApproved
		if in.Status != nil {
			r.Status = strings.TrimSpace(*in.Status)
		}
	}
	if err := validateReport(r); err != nil {
		return nil, false, err
	}

	// 3. --- Persist ---
	var id int64
	if caller.IsAdmin() {
		if err := s.prices.InsertReport(ctx, r); err != nil {
			return nil, false, errors.Wrap(err, "insert price report")
		}
		id, created = r.ID, true
	} else {
		overwrite := []string{
			store.ColSubmissionDate, store.ColValidFrom, store.ColValidTo,
			store.ColQuantity, store.ColSalePrice, store.ColIsOnSale,
		}
		if in.ReportType != nil {
			overwrite = append(overwrite, store.ColReportType)
		}
		if in.Notes != nil {
			overwrite = append(overwrite, store.ColNotes)
		}
		id, created, err = s.prices.UpsertOpenReport(ctx, r, overwrite)
		if err != nil {
			return nil, false, errors.Wrap(err, "upsert price report")
		}
	}

	report, err = s.load(ctx, id, caller.UserID)
	if err != nil {
		return nil, false, err
	}
	return report, created, nil
}

// List returns one page of reports. Callers other than admins only see
// approved reports whatever status they ask for.
func (s *PriceService) List(ctx context.Context, caller *models.Identity, q ReportQuery) ([]models.PriceReport, models.PageInfo, error) {
	f := q.Filter
	f.ViewerID = caller.ID()
	switch {
	case !caller.IsAdmin():
		f.Status = models.StatusApproved
	case f.Status == StatusAll:
		f.Status = ""
	default:
		if err := validation.Var(f.Status, "omitempty,"+statusOneOf, msgInvalidStatus); err != nil {
			return nil, models.PageInfo{}, err
		}
	}

	reports, total, err := s.prices.ListReports(ctx, f)
	if err != nil {
		return nil, models.PageInfo{}, errors.Wrap(err, "list price reports")
	}
	info := models.NewPageInfo(f.Page, total, len(reports))

	out := make([]models.PriceReport, 0, len(reports))
	for i := range reports {
		r := &reports[i]
		s.norm.decorate(r)
		if q.MinPrice != nil && (r.CalculatedPricePer100g == nil || *r.CalculatedPricePer100g < *q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && (r.CalculatedPricePer100g == nil || *r.CalculatedPricePer100g > *q.MaxPrice) {
			continue
		}
		out = append(out, *r)
	}
	return out, info, nil
}

// Get returns one report. Reports awaiting or failing moderation are
// visible only to their reporter and to admins.
func (s *PriceService) Get(ctx context.Context, caller *models.Identity, id int64) (*models.PriceReport, error) {
	r, err := s.load(ctx, id, caller.ID())
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusApproved && !CanModify(caller, r.UserID) {
		return nil, apperr.NotFound("Price entry not found")
	}
	return r, nil
}

// Update applies patch to a report owned by the caller, or any report for
// admins. Non-admin edits send the report back to moderation.
func (s *PriceService) Update(ctx context.Context, caller *models.Identity, id int64, patch ReportPatch) (*models.PriceReport, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Access denied. No token provided.")
	}
	if patch.empty() {
		return nil, apperr.Validation("No valid fields provided for update.")
	}

	// 1. --- Load and authorize ---
	r, err := s.load(ctx, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !CanModify(caller, r.UserID) {
		return nil, apperr.Forbidden("Forbidden: You can only modify your own price reports.")
	}
	if !caller.IsAdmin() {
		if fields := patch.adminOnlyFields(); len(fields) > 0 {
			return nil, apperr.Forbidden(fmt.Sprintf("Forbidden: You are not allowed to update: %s.", strings.Join(fields, ", ")))
		}
	}

	// 2. --- Merge ---
	fromStatus := r.Status
	if err := applyReportPatch(r, patch); err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		if s.strictTransitions && !models.CanTransition(fromStatus, r.Status) {
			return nil, apperr.Conflict(fmt.Sprintf("Invalid status transition from %s to %s.", fromStatus, r.Status))
		}
	} else {
		r.Status = models.StatusPendingApproval
	}
	if err := validateReport(r); err != nil {
		return nil, err
	}

	// 3. --- Save ---
	if err := s.prices.UpdateReport(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Price entry not found.")
		}
		return nil, errors.Wrap(err, "update price report")
	}
	return s.load(ctx, id, caller.UserID)
}

func applyReportPatch(r *models.PriceReport, p ReportPatch) error {
	required := func(name string, set bool, isNil bool) error {
		if set && isNil {
			return apperr.Validationf("%s cannot be null.", name)
		}
		return nil
	}
	for _, check := range []error{
		required("product_id", p.ProductID.Set, p.ProductID.Value == nil),
		required("retailer_id", p.RetailerID.Set, p.RetailerID.Value == nil),
		required("user_id", p.UserID.Set, p.UserID.Value == nil),
		required("price_submission_date", p.PriceSubmissionDate.Set, p.PriceSubmissionDate.Value == nil),
		required("unit_for_price", p.UnitForPrice.Set, p.UnitForPrice.Value == nil),
		required("quantity_for_price", p.QuantityForPrice.Set, p.QuantityForPrice.Value == nil),
		required("regular_price", p.RegularPrice.Set, p.RegularPrice.Value == nil),
		required("is_on_sale", p.IsOnSale.Set, p.IsOnSale.Value == nil),
		required("source", p.Source.Set, p.Source.Value == nil),
		required("status", p.Status.Set, p.Status.Value == nil),
	} {
		if check != nil {
			return check
		}
	}

	if p.ProductID.Set {
		r.ProductID = *p.ProductID.Value
	}
	if p.RetailerID.Set {
		r.RetailerID = *p.RetailerID.Value
	}
	if p.UserID.Set {
		r.UserID = *p.UserID.Value
		if r.ClaimUserID != nil {
			claim := r.UserID
			r.ClaimUserID = &claim
		}
	}
	if p.PriceSubmissionDate.Set {
		r.PriceSubmissionDate = *p.PriceSubmissionDate.Value
	}
	if p.UnitForPrice.Set {
		r.UnitForPrice = strings.ToLower(strings.TrimSpace(*p.UnitForPrice.Value))
	}
	if p.QuantityForPrice.Set {
		r.QuantityForPrice = *p.QuantityForPrice.Value
	}
	if p.RegularPrice.Set {
		r.RegularPrice = *p.RegularPrice.Value
	}
	if p.IsOnSale.Set {
		r.IsOnSale = *p.IsOnSale.Value
	}
	if p.Source.Set {
		r.Source = strings.TrimSpace(*p.Source.Value)
	}
	if p.Status.Set {
		r.Status = strings.TrimSpace(*p.Status.Value)
	}
	p.PriceValidFrom.Apply(&r.PriceValidFrom)
	p.PriceValidTo.Apply(&r.PriceValidTo)
	p.SalePrice.Apply(&r.SalePrice)
	p.ReportType.Apply(&r.ReportType)
	p.Notes.Apply(&r.Notes)
	return nil
}

// Delete removes a report owned by the caller, or any report for admins.
func (s *PriceService) Delete(ctx context.Context, caller *models.Identity, id int64) error {
	if caller == nil {
		return apperr.Unauthenticated("Access denied. No token provided.")
	}
	r, err := s.load(ctx, id, caller.UserID)
	if err != nil {
		return err
	}
	if !CanModify(caller, r.UserID) {
		return apperr.Forbidden("Forbidden: You can only delete your own price reports.")
	}
	if err := s.prices.DeleteReport(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Price entry not found.")
		}
		return errors.Wrap(err, "delete price report")
	}
	return nil
}

// Like records the caller's like. Repeating it is harmless.
func (s *PriceService) Like(ctx context.Context, caller *models.Identity, priceID int64) (*models.LikeSummary, error) {
	return s.toggleLike(ctx, caller, priceID, true)
}

// Unlike removes the caller's like, if any.
func (s *PriceService) Unlike(ctx context.Context, caller *models.Identity, priceID int64) (*models.LikeSummary, error) {
	return s.toggleLike(ctx, caller, priceID, false)
}

func (s *PriceService) toggleLike(ctx context.Context, caller *models.Identity, priceID int64, like bool) (*models.LikeSummary, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("Access denied. No token provided.")
	}
	exists, err := s.prices.ReportExists(ctx, priceID)
	if err != nil {
		return nil, errors.Wrap(err, "check price report")
	}
	if !exists {
		return nil, apperr.NotFound("Price report not found.")
	}

	if like {
		err = s.prices.AddLike(ctx, caller.UserID, priceID)
	} else {
		err = s.prices.RemoveLike(ctx, caller.UserID, priceID)
	}
	if errors.Is(err, store.ErrInvalidReference) {
		// The report was deleted between the check and the write.
		return nil, apperr.NotFound("Price report not found.")
	}
	if err != nil {
		return nil, errors.Wrap(err, "toggle like")
	}

	count, err := s.prices.CountLikes(ctx, priceID)
	if err != nil {
		return nil, errors.Wrap(err, "count likes")
	}
	return &models.LikeSummary{PriceID: priceID, UserID: caller.UserID, LikesCount: count, UserLiked: like}, nil
}

// UpdateStatus moves a report to a new moderation status. Admin only.
func (s *PriceService) UpdateStatus(ctx context.Context, caller *models.Identity, id int64, status string) (*models.PriceReport, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("Forbidden: You do not have the required role for this action.")
	}
	status = strings.TrimSpace(status)
	if err := validation.Var(status, statusOneOf, msgInvalidStatus); err != nil {
		return nil, err
	}

	r, err := s.load(ctx, id, caller.UserID)
	if err != nil {
		return nil, err
	}
	if s.strictTransitions && !models.CanTransition(r.Status, status) {
		return nil, apperr.Conflict(fmt.Sprintf("Invalid status transition from %s to %s.", r.Status, status))
	}

	if err := s.prices.UpdateReportStatus(ctx, id, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Price report not found.")
		}
		return nil, errors.Wrap(err, "update status")
	}
	return s.load(ctx, id, caller.UserID)
}

// load fetches a decorated report as seen by viewerID.
func (s *PriceService) load(ctx context.Context, id, viewerID int64) (*models.PriceReport, error) {
	r, err := s.prices.GetReport(ctx, id, viewerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Price entry not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get price report")
	}
	s.norm.decorate(r)
	return r, nil
}

const (
	statusOneOf      = "oneof=pending_approval approved rejected expired edited"
	msgInvalidStatus = "Invalid status. Must be one of: pending_approval, approved, rejected, expired, edited."
)

var createReportMessages = validation.Messages{
	"required": "Missing required fields: product_id, retailer_id, unit_for_price, regular_price, source.",
}

var reportMessages = validation.Messages{
	"product_id":          "product_id, retailer_id and user_id must be positive integers.",
	"retailer_id":         "product_id, retailer_id and user_id must be positive integers.",
	"user_id":             "product_id, retailer_id and user_id must be positive integers.",
	"unit_for_price":      "Invalid unit_for_price. Must be one of: kg, 100g, g, unit, package.",
	"quantity_for_price":  "quantity_for_price must be a positive number.",
	"regular_price":       "regular_price must be a positive number.",
	"sale_price.gt":       "sale_price must be a positive number.",
	"sale_price.ltefield": "sale_price cannot be greater than regular_price.",
	"status":              msgInvalidStatus,
}

// validateReport checks a complete row, including one merged from a patch.
func validateReport(r *models.PriceReport) error {
	if err := validation.Struct(r, reportMessages); err != nil {
		return err
	}
	switch {
	case r.IsOnSale && r.SalePrice == nil:
		return apperr.Validation("sale_price is required when is_on_sale is true.")
	case r.PriceValidFrom != nil && r.PriceValidTo != nil && r.PriceValidFrom.After(r.PriceValidTo.Time):
		return apperr.Validation("price_valid_from cannot be after price_valid_to.")
	}
	return nil
}

