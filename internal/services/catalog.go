package services

import (
	"context"
	"maps"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/pricing"
	"github.com/01moynul/bashrometer-golang/internal/store"
	"github.com/01moynul/bashrometer-golang/internal/validation"
)

const maxPriceExamples = 10

// ProductInput is the body of a product create request.
type ProductInput struct {
	Name                      string   `json:"name" validate:"required"`
	Brand                     *string  `json:"brand"`
	Category                  *string  `json:"category"`
	UnitOfMeasure             string   `json:"unit_of_measure" validate:"required"`
	DefaultWeightPerUnitGrams *float64 `json:"default_weight_per_unit_grams" validate:"omitempty,gt=0"`
	IsActive                  *bool    `json:"is_active"`
	OriginCountry             *string  `json:"origin_country"`
	KosherLevel               *string  `json:"kosher_level"`
	AnimalType                *string  `json:"animal_type"`
	CutType                   *string  `json:"cut_type"`
	Description               *string  `json:"description"`
	ShortDescription          *string  `json:"short_description"`
	ImageURL                  *string  `json:"image_url"`
}

// ProductPatch is a partial product update. Absent keys are left alone and
// explicit nulls clear optional columns.
type ProductPatch struct {
	Name                      models.Nullable[string]  `json:"name"`
	Brand                     models.Nullable[string]  `json:"brand"`
	Category                  models.Nullable[string]  `json:"category"`
	UnitOfMeasure             models.Nullable[string]  `json:"unit_of_measure"`
	DefaultWeightPerUnitGrams models.Nullable[float64] `json:"default_weight_per_unit_grams"`
	IsActive                  models.Nullable[bool]    `json:"is_active"`
	OriginCountry             models.Nullable[string]  `json:"origin_country"`
	KosherLevel               models.Nullable[string]  `json:"kosher_level"`
	AnimalType                models.Nullable[string]  `json:"animal_type"`
	CutType                   models.Nullable[string]  `json:"cut_type"`
	Description               models.Nullable[string]  `json:"description"`
	ShortDescription          models.Nullable[string]  `json:"short_description"`
	ImageURL                  models.Nullable[string]  `json:"image_url"`
}

func (p ProductPatch) empty() bool {
	return !(p.Name.Set || p.Brand.Set || p.Category.Set || p.UnitOfMeasure.Set ||
		p.DefaultWeightPerUnitGrams.Set || p.IsActive.Set || p.OriginCountry.Set ||
		p.KosherLevel.Set || p.AnimalType.Set || p.CutType.Set || p.Description.Set ||
		p.ShortDescription.Set || p.ImageURL.Set)
}

// RetailerInput is the body of a retailer create request.
type RetailerInput struct {
	Name         string   `json:"name" validate:"required"`
	Chain        *string  `json:"chain"`
	Address      *string  `json:"address"`
	Type         string   `json:"type" validate:"required"`
	GeoLat       *float64 `json:"geo_lat" validate:"omitempty,latitude"`
	GeoLon       *float64 `json:"geo_lon" validate:"omitempty,longitude"`
	OpeningHours *string  `json:"opening_hours"`
	UserRating   *float64 `json:"user_rating" validate:"omitempty,gte=0,lte=5"`
	RatingCount  *int     `json:"rating_count" validate:"omitempty,gte=0"`
	Phone        *string  `json:"phone"`
	Website      *string  `json:"website"`
	Notes        *string  `json:"notes"`
	IsActive     *bool    `json:"is_active"`
}

type RetailerPatch struct {
	Name         models.Nullable[string]  `json:"name"`
	Chain        models.Nullable[string]  `json:"chain"`
	Address      models.Nullable[string]  `json:"address"`
	Type         models.Nullable[string]  `json:"type"`
	GeoLat       models.Nullable[float64] `json:"geo_lat"`
	GeoLon       models.Nullable[float64] `json:"geo_lon"`
	OpeningHours models.Nullable[string]  `json:"opening_hours"`
	UserRating   models.Nullable[float64] `json:"user_rating"`
	RatingCount  models.Nullable[int]     `json:"rating_count"`
	Phone        models.Nullable[string]  `json:"phone"`
	Website      models.Nullable[string]  `json:"website"`
	Notes        models.Nullable[string]  `json:"notes"`
	IsActive     models.Nullable[bool]    `json:"is_active"`
}

func (p RetailerPatch) empty() bool {
	return !(p.Name.Set || p.Chain.Set || p.Address.Set || p.Type.Set || p.GeoLat.Set ||
		p.GeoLon.Set || p.OpeningHours.Set || p.UserRating.Set || p.RatingCount.Set ||
		p.Phone.Set || p.Website.Set || p.Notes.Set || p.IsActive.Set)
}

// CatalogService manages products and retailers and decorates products
// with their comparable prices.
type CatalogService struct {
	products  store.ProductStore
	retailers store.RetailerStore
	prices    store.PriceStore
	norm      normalizer
	today     func() models.Date
}

func NewCatalogService(products store.ProductStore, retailers store.RetailerStore, prices store.PriceStore, log *zap.Logger) *CatalogService {
	return &CatalogService{
		products:  products,
		retailers: retailers,
		prices:    prices,
		norm:      newNormalizer(log),
		today:     models.Today,
	}
}

// --- Products ---

// ListProducts returns one page of products. Callers other than admins
// only ever see active products.
func (s *CatalogService) ListProducts(ctx context.Context, caller *models.Identity, f store.ProductFilter) ([]models.Product, models.PageInfo, error) {
	if !caller.IsAdmin() {
		active := true
		f.IsActive = &active
	}

	products, total, err := s.products.ListProducts(ctx, f)
	if err != nil {
		return nil, models.PageInfo{}, errors.Wrap(err, "list products")
	}
	if err := s.attachMinPrices(ctx, products); err != nil {
		return nil, models.PageInfo{}, err
	}
	return products, models.NewPageInfo(f.Page, total, len(products)), nil
}

// GetProduct returns a product with its min price and price examples.
func (s *CatalogService) GetProduct(ctx context.Context, caller *models.Identity, id int64) (*models.Product, error) {
	product, err := s.products.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !product.IsActive && !caller.IsAdmin()) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}

	one := []models.Product{*product}
	if err := s.attachMinPrices(ctx, one); err != nil {
		return nil, err
	}
	*product = one[0]

	reports, err := s.prices.ProductPriceExamples(ctx, id, caller.ID())
	if err != nil {
		return nil, errors.Wrap(err, "load price examples")
	}
	product.PriceExamples = s.priceExamples(reports, product.DefaultWeightPerUnitGrams)
	return product, nil
}

// attachMinPrices sets min_price_per_100g from the approved reports that
// are still valid today.
func (s *CatalogService) attachMinPrices(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}

	reports, err := s.prices.ApprovedPricesForProducts(ctx, ids, s.today())
	if err != nil {
		return errors.Wrap(err, "load approved prices")
	}

	minByProduct := make(map[int64]float64)
	for _, r := range reports {
		v, ok := s.norm.normalize(reportPricing(&r))
		if !ok {
			continue
		}
		if cur, seen := minByProduct[r.ProductID]; !seen || v < cur {
			minByProduct[r.ProductID] = v
		}
	}
	for i := range products {
		if v, ok := minByProduct[products[i].ID]; ok {
			rounded := pricing.Round2(v)
			products[i].MinPricePer100g = &rounded
		}
	}
	return nil
}

// priceExamples orders reports by comparable price, cheapest first with
// incomparable ones last, then by newest submission, and keeps ten.
func (s *CatalogService) priceExamples(reports []models.PriceReport, weight *float64) []models.PriceExample {
	type ranked struct {
		report models.PriceReport
		value  float64
		ok     bool
	}
	items := make([]ranked, 0, len(reports))
	for _, r := range reports {
		in := reportPricing(&r)
		in.DefaultWeightGrams = weight
		v, ok := s.norm.normalize(in)
		items = append(items, ranked{report: r, value: v, ok: ok})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.ok != b.ok {
			return a.ok
		}
		if a.ok && a.value != b.value {
			return a.value < b.value
		}
		return a.report.PriceSubmissionDate.After(b.report.PriceSubmissionDate.Time)
	})
	if len(items) > maxPriceExamples {
		items = items[:maxPriceExamples]
	}

	out := make([]models.PriceExample, 0, len(items))
	for _, it := range items {
		r := it.report
		var per100g *float64
		if it.ok {
			v := pricing.Round2(it.value)
			per100g = &v
		}
		out = append(out, models.PriceExample{
			PriceID:                r.ID,
			RetailerID:             r.RetailerID,
			Retailer:               r.RetailerName,
			RegularPrice:           r.RegularPrice,
			SalePrice:              r.SalePrice,
			IsOnSale:               r.IsOnSale,
			UnitForPrice:           r.UnitForPrice,
			QuantityForPrice:       r.QuantityForPrice,
			SubmissionDate:         r.PriceSubmissionDate,
			ValidFrom:              r.PriceValidFrom,
			ValidTo:                r.PriceValidTo,
			Notes:                  r.Notes,
			LikesCount:             r.LikesCount,
			CurrentUserLiked:       r.CurrentUserLiked,
			CalculatedPricePer100g: per100g,
		})
	}
	return out
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	// 1. --- Validate ---
	in.Name = strings.TrimSpace(in.Name)
	in.UnitOfMeasure = strings.TrimSpace(in.UnitOfMeasure)
	if err := validation.Struct(in, createProductMessages); err != nil {
		return nil, err
	}

	// 2. --- Build the product ---
	p := &models.Product{
		Name:                      in.Name,
		Slug:                      slug.Make(in.Name),
		Brand:                     trimmed(in.Brand),
		Category:                  trimmed(in.Category),
		UnitOfMeasure:             in.UnitOfMeasure,
		DefaultWeightPerUnitGrams: in.DefaultWeightPerUnitGrams,
		IsActive:                  in.IsActive == nil || *in.IsActive,
		OriginCountry:             trimmed(in.OriginCountry),
		KosherLevel:               trimmed(in.KosherLevel),
		AnimalType:                trimmed(in.AnimalType),
		CutType:                   trimmed(in.CutType),
		Description:               in.Description,
		ShortDescription:          in.ShortDescription,
		ImageURL:                  trimmed(in.ImageURL),
	}

	// 3. --- Persist ---
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, errors.Wrap(err, "create product")
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*models.Product, error) {
	if patch.empty() {
		return nil, apperr.Validation("No fields provided for update.")
	}

	p, err := s.products.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get product")
	}

	if patch.Name.Set {
		if name := requiredText(patch.Name); name != p.Name {
			p.Name = name
			p.Slug = slug.Make(name)
		}
	}
	if patch.UnitOfMeasure.Set {
		p.UnitOfMeasure = requiredText(patch.UnitOfMeasure)
	}
	if patch.IsActive.Set {
		if patch.IsActive.Value == nil {
			return nil, apperr.Validation("is_active cannot be null.")
		}
		p.IsActive = *patch.IsActive.Value
	}
	patch.Brand.Apply(&p.Brand)
	patch.Category.Apply(&p.Category)
	patch.DefaultWeightPerUnitGrams.Apply(&p.DefaultWeightPerUnitGrams)
	patch.OriginCountry.Apply(&p.OriginCountry)
	patch.KosherLevel.Apply(&p.KosherLevel)
	patch.AnimalType.Apply(&p.AnimalType)
	patch.CutType.Apply(&p.CutType)
	patch.Description.Apply(&p.Description)
	patch.ShortDescription.Apply(&p.ShortDescription)
	patch.ImageURL.Apply(&p.ImageURL)

	if err := validation.Struct(p, updateProductMessages); err != nil {
		return nil, err
	}
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, errors.Wrap(err, "update product")
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.products.DeleteProduct(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Product not found")
	case errors.Is(err, store.ErrReferenced):
		return apperr.Conflict("Product is referenced by price reports and cannot be deleted.")
	case err != nil:
		return errors.Wrap(err, "delete product")
	}
	return nil
}

const msgWeight = "default_weight_per_unit_grams must be a positive number."

var createProductMessages = validation.Messages{
	"required":                      "Product name and unit_of_measure are required.",
	"default_weight_per_unit_grams": msgWeight,
}

var updateProductMessages = validation.Messages{
	"name":                          "Product name cannot be empty.",
	"unit_of_measure":               "unit_of_measure cannot be empty.",
	"default_weight_per_unit_grams": msgWeight,
}

// requiredText returns the trimmed patch value, or "" for an explicit null
// so the merged row fails its required check.
func requiredText(n models.Nullable[string]) string {
	if n.Value == nil {
		return ""
	}
	return strings.TrimSpace(*n.Value)
}

// --- Retailers ---

func (s *CatalogService) ListRetailers(ctx context.Context, caller *models.Identity, f store.RetailerFilter) ([]models.Retailer, models.PageInfo, error) {
	if !caller.IsAdmin() {
		active := true
		f.IsActive = &active
	}
	retailers, total, err := s.retailers.ListRetailers(ctx, f)
	if err != nil {
		return nil, models.PageInfo{}, errors.Wrap(err, "list retailers")
	}
	return retailers, models.NewPageInfo(f.Page, total, len(retailers)), nil
}

func (s *CatalogService) GetRetailer(ctx context.Context, caller *models.Identity, id int64) (*models.Retailer, error) {
	r, err := s.retailers.GetRetailer(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !r.IsActive && !caller.IsAdmin()) {
		return nil, apperr.NotFound("Retailer not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get retailer")
	}
	return r, nil
}

func (s *CatalogService) CreateRetailer(ctx context.Context, in RetailerInput) (*models.Retailer, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.TrimSpace(in.Type)
	if err := validation.Struct(in, createRetailerMessages); err != nil {
		return nil, err
	}

	r := &models.Retailer{
		Name:         in.Name,
		Slug:         slug.Make(in.Name),
		Chain:        trimmed(in.Chain),
		Address:      trimmed(in.Address),
		Type:         in.Type,
		GeoLat:       in.GeoLat,
		GeoLon:       in.GeoLon,
		OpeningHours: trimmed(in.OpeningHours),
		UserRating:   in.UserRating,
		Phone:        trimmed(in.Phone),
		Website:      trimmed(in.Website),
		Notes:        in.Notes,
		IsActive:     in.IsActive == nil || *in.IsActive,
	}
	if in.RatingCount != nil {
		r.RatingCount = *in.RatingCount
	}

	if err := s.retailers.CreateRetailer(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create retailer")
	}
	return r, nil
}

func (s *CatalogService) UpdateRetailer(ctx context.Context, id int64, patch RetailerPatch) (*models.Retailer, error) {
	if patch.empty() {
		return nil, apperr.Validation("No fields provided for update.")
	}

	r, err := s.retailers.GetRetailer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Retailer not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "get retailer")
	}

	if patch.Name.Set {
		if name := requiredText(patch.Name); name != r.Name {
			r.Name = name
			r.Slug = slug.Make(name)
		}
	}
	if patch.Type.Set {
		r.Type = requiredText(patch.Type)
	}
	if patch.IsActive.Set {
		if patch.IsActive.Value == nil {
			return nil, apperr.Validation("is_active cannot be null.")
		}
		r.IsActive = *patch.IsActive.Value
	}
	if patch.RatingCount.Set {
		r.RatingCount = 0
		if patch.RatingCount.Value != nil {
			r.RatingCount = *patch.RatingCount.Value
		}
	}
	patch.Chain.Apply(&r.Chain)
	patch.Address.Apply(&r.Address)
	patch.GeoLat.Apply(&r.GeoLat)
	patch.GeoLon.Apply(&r.GeoLon)
	patch.OpeningHours.Apply(&r.OpeningHours)
	patch.UserRating.Apply(&r.UserRating)
	patch.Phone.Apply(&r.Phone)
	patch.Website.Apply(&r.Website)
	patch.Notes.Apply(&r.Notes)

	if err := validation.Struct(r, updateRetailerMessages); err != nil {
		return nil, err
	}
	if err := s.retailers.UpdateRetailer(ctx, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Retailer not found")
		}
		return nil, errors.Wrap(err, "update retailer")
	}
	return r, nil
}

func (s *CatalogService) DeleteRetailer(ctx context.Context, id int64) error {
	err := s.retailers.DeleteRetailer(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("Retailer not found")
	case errors.Is(err, store.ErrReferenced):
		return apperr.Conflict("Retailer is referenced by price reports and cannot be deleted.")
	case err != nil:
		return errors.Wrap(err, "delete retailer")
	}
	return nil
}

var retailerRangeMessages = validation.Messages{
	"geo_lat":      "geo_lat must be between -90 and 90.",
	"geo_lon":      "geo_lon must be between -180 and 180.",
	"user_rating":  "user_rating must be between 0 and 5.",
	"rating_count": "rating_count cannot be negative.",
}

var createRetailerMessages = withRetailerRanges(validation.Messages{
	"required": "Retailer name and type are required.",
})

var updateRetailerMessages = withRetailerRanges(validation.Messages{
	"name": "Retailer name cannot be empty.",
	"type": "Retailer type cannot be empty.",
})

func withRetailerRanges(m validation.Messages) validation.Messages {
	maps.Copy(m, retailerRangeMessages)
	return m
}
