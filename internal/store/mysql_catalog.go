package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

// --- Products ---

var productColumns = []string{
	"p.id", "p.name", "p.slug", "p.brand", "p.category", "p.unit_of_measure",
	"p.default_weight_per_unit_grams", "p.is_active", "p.origin_country", "p.kosher_level",
	"p.animal_type", "p.cut_type", "p.description", "p.short_description", "p.image_url",
	"p.created_at", "p.updated_at",
}

var productSortColumns = map[string]string{
	"name":     "p.name",
	"brand":    "p.brand",
	"category": "p.category",
}

func scanProduct(row rowScanner) (*models.Product, error) {
	var p models.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Brand, &p.Category, &p.UnitOfMeasure,
		&p.DefaultWeightPerUnitGrams, &p.IsActive, &p.OriginCountry, &p.KosherLevel,
		&p.AnimalType, &p.CutType, &p.Description, &p.ShortDescription, &p.ImageURL,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func productWhere(b sq.SelectBuilder, f ProductFilter) sq.SelectBuilder {
	if f.Category != "" {
		b = b.Where(sq.Like{"LOWER(p.category)": likePattern(f.Category)})
	}
	if f.Brand != "" {
		b = b.Where(sq.Like{"LOWER(p.brand)": likePattern(f.Brand)})
	}
	if f.AnimalType != "" {
		b = b.Where(sq.Like{"LOWER(p.animal_type)": likePattern(f.AnimalType)})
	}
	if f.NameLike != "" {
		b = b.Where(sq.Like{"LOWER(p.name)": likePattern(f.NameLike)})
	}
	if f.KosherLevel != "" {
		b = b.Where(sq.Eq{"p.kosher_level": f.KosherLevel})
	}
	if f.IsActive != nil {
		b = b.Where(sq.Eq{"p.is_active": *f.IsActive})
	}
	return b
}

func buildProductList(f ProductFilter) (list, count sq.SelectBuilder) {
	list = productWhere(sq.Select(productColumns...).From("products p"), f).
		OrderBy(orderBy(f.Sort, productSortColumns, "name", "p.id")...)
	list = paginate(list, f.Page)
	count = productWhere(sq.Select("COUNT(*)").From("products p"), f)
	return list, count
}

func (s *MySQLStore) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int, error) {
	listQ, countQ := buildProductList(f)

	total, err := s.count(ctx, countQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	rows, err := s.query(ctx, listQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err)
	}
	return products, total, nil
}

func (s *MySQLStore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	row, err := s.queryRow(ctx, sq.Select(productColumns...).From("products p").Where(sq.Eq{"p.id": id}))
	if err != nil {
		return nil, err
	}
	return scanProduct(row)
}

func productValues(p *models.Product) map[string]any {
	return map[string]any{
		"name":                          p.Name,
		"slug":                          p.Slug,
		"brand":                         p.Brand,
		"category":                      p.Category,
		"unit_of_measure":               p.UnitOfMeasure,
		"default_weight_per_unit_grams": p.DefaultWeightPerUnitGrams,
		"is_active":                     p.IsActive,
		"origin_country":                p.OriginCountry,
		"kosher_level":                  p.KosherLevel,
		"animal_type":                   p.AnimalType,
		"cut_type":                      p.CutType,
		"description":                   p.Description,
		"short_description":             p.ShortDescription,
		"image_url":                     p.ImageURL,
	}
}

func (s *MySQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	res, err := s.exec(ctx, sq.Insert("products").SetMap(productValues(p)))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read product id")
	}
	created, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

func (s *MySQLStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	values := productValues(p)
	values["updated_at"] = sq.Expr("CURRENT_TIMESTAMP")
	if _, err := s.exec(ctx, sq.Update("products").SetMap(values).Where(sq.Eq{"id": p.ID})); err != nil {
		return err
	}
	updated, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *updated
	return nil
}

func (s *MySQLStore) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "products", id)
}

// --- Retailers ---

var retailerColumns = []string{
	"r.id", "r.name", "r.slug", "r.chain", "r.address", "r.type", "r.geo_lat", "r.geo_lon",
	"r.opening_hours", "r.user_rating", "r.rating_count", "r.phone", "r.website", "r.notes",
	"r.is_active", "r.created_at", "r.updated_at",
}

var retailerSortColumns = map[string]string{
	"name":  "r.name",
	"chain": "r.chain",
	"type":  "r.type",
}

func scanRetailer(row rowScanner) (*models.Retailer, error) {
	var r models.Retailer
	err := row.Scan(
		&r.ID, &r.Name, &r.Slug, &r.Chain, &r.Address, &r.Type, &r.GeoLat, &r.GeoLon,
		&r.OpeningHours, &r.UserRating, &r.RatingCount, &r.Phone, &r.Website, &r.Notes,
		&r.IsActive, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func retailerWhere(b sq.SelectBuilder, f RetailerFilter) sq.SelectBuilder {
	if f.Chain != "" {
		b = b.Where(sq.Like{"LOWER(r.chain)": likePattern(f.Chain)})
	}
	if f.Type != "" {
		b = b.Where(sq.Like{"LOWER(r.type)": likePattern(f.Type)})
	}
	if f.NameLike != "" {
		b = b.Where(sq.Like{"LOWER(r.name)": likePattern(f.NameLike)})
	}
	if f.IsActive != nil {
		b = b.Where(sq.Eq{"r.is_active": *f.IsActive})
	}
	return b
}

func buildRetailerList(f RetailerFilter) (list, count sq.SelectBuilder) {
	list = retailerWhere(sq.Select(retailerColumns...).From("retailers r"), f).
		OrderBy(orderBy(f.Sort, retailerSortColumns, "name", "r.id")...)
	list = paginate(list, f.Page)
	count = retailerWhere(sq.Select("COUNT(*)").From("retailers r"), f)
	return list, count
}

func (s *MySQLStore) ListRetailers(ctx context.Context, f RetailerFilter) ([]models.Retailer, int, error) {
	listQ, countQ := buildRetailerList(f)

	total, err := s.count(ctx, countQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count retailers")
	}

	rows, err := s.query(ctx, listQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list retailers")
	}
	defer rows.Close()

	retailers := []models.Retailer{}
	for rows.Next() {
		r, err := scanRetailer(rows)
		if err != nil {
			return nil, 0, err
		}
		retailers = append(retailers, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err)
	}
	return retailers, total, nil
}

func (s *MySQLStore) GetRetailer(ctx context.Context, id int64) (*models.Retailer, error) {
	row, err := s.queryRow(ctx, sq.Select(retailerColumns...).From("retailers r").Where(sq.Eq{"r.id": id}))
	if err != nil {
		return nil, err
	}
	return scanRetailer(row)
}

func retailerValues(r *models.Retailer) map[string]any {
	return map[string]any{
		"name":          r.Name,
		"slug":          r.Slug,
		"chain":         r.Chain,
		"address":       r.Address,
		"type":          r.Type,
		"geo_lat":       r.GeoLat,
		"geo_lon":       r.GeoLon,
		"opening_hours": r.OpeningHours,
		"user_rating":   r.UserRating,
		"rating_count":  r.RatingCount,
		"phone":         r.Phone,
		"website":       r.Website,
		"notes":         r.Notes,
		"is_active":     r.IsActive,
	}
}

func (s *MySQLStore) CreateRetailer(ctx context.Context, r *models.Retailer) error {
	res, err := s.exec(ctx, sq.Insert("retailers").SetMap(retailerValues(r)))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read retailer id")
	}
	created, err := s.GetRetailer(ctx, id)
	if err != nil {
		return err
	}
	*r = *created
	return nil
}

func (s *MySQLStore) UpdateRetailer(ctx context.Context, r *models.Retailer) error {
	values := retailerValues(r)
	values["updated_at"] = sq.Expr("CURRENT_TIMESTAMP")
	if _, err := s.exec(ctx, sq.Update("retailers").SetMap(values).Where(sq.Eq{"id": r.ID})); err != nil {
		return err
	}
	updated, err := s.GetRetailer(ctx, r.ID)
	if err != nil {
		return err
	}
	*r = *updated
	return nil
}

func (s *MySQLStore) DeleteRetailer(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "retailers", id)
}
