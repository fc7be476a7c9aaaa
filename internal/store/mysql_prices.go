package store

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

var reportColumns = []string{
	"pr.id", "pr.product_id", "pr.retailer_id", "pr.user_id", "pr.claim_user_id",
	"pr.price_submission_date", "pr.price_valid_from", "pr.price_valid_to",
	"pr.unit_for_price", "pr.quantity_for_price", "pr.regular_price", "pr.sale_price",
	"pr.is_on_sale", "pr.source", "pr.report_type", "pr.status", "pr.notes",
	"pr.created_at", "pr.updated_at",
	"p.name", "r.name", "u.name", "p.default_weight_per_unit_grams",
}

var reportSortColumns = map[string]string{
	"price_submission_date": "pr.price_submission_date",
	"created_at":            "pr.created_at",
	"regular_price":         "pr.regular_price",
}

func scanReport(row rowScanner) (*models.PriceReport, error) {
	var r models.PriceReport
	err := row.Scan(
		&r.ID, &r.ProductID, &r.RetailerID, &r.UserID, &r.ClaimUserID,
		&r.PriceSubmissionDate, &r.PriceValidFrom, &r.PriceValidTo,
		&r.UnitForPrice, &r.QuantityForPrice, &r.RegularPrice, &r.SalePrice,
		&r.IsOnSale, &r.Source, &r.ReportType, &r.Status, &r.Notes,
		&r.CreatedAt, &r.UpdatedAt,
		&r.ProductName, &r.RetailerName, &r.UserName, &r.DefaultWeightPerUnitGrams,
		&r.LikesCount, &r.CurrentUserLiked,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

// reportSelect is the joined report row plus like data for viewerID.
func reportSelect(viewerID int64) sq.SelectBuilder {
	return sq.Select(reportColumns...).
		Column(sq.Expr("(SELECT COUNT(*) FROM price_report_likes lc WHERE lc.price_id = pr.id) AS likes_count")).
		Column(sq.Expr("EXISTS (SELECT 1 FROM price_report_likes lu WHERE lu.price_id = pr.id AND lu.user_id = ?) AS current_user_liked", viewerID)).
		From("price_reports pr").
		Join("products p ON p.id = pr.product_id").
		Join("retailers r ON r.id = pr.retailer_id").
		LeftJoin("users u ON u.id = pr.user_id")
}

func reportWhere(b sq.SelectBuilder, f ReportFilter) sq.SelectBuilder {
	if f.ProductID != nil {
		b = b.Where(sq.Eq{"pr.product_id": *f.ProductID})
	}
	if f.RetailerID != nil {
		b = b.Where(sq.Eq{"pr.retailer_id": *f.RetailerID})
	}
	if f.UserID != nil {
		b = b.Where(sq.Eq{"pr.user_id": *f.UserID})
	}
	if f.OnSale != nil {
		b = b.Where(sq.Eq{"pr.is_on_sale": *f.OnSale})
	}
	if f.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"pr.price_submission_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		b = b.Where(sq.LtOrEq{"pr.price_submission_date": *f.DateTo})
	}
	if f.Status != "" {
		b = b.Where(sq.Eq{"pr.status": f.Status})
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		b = b.Where(sq.Or{
			sq.Like{"LOWER(p.name)": pattern},
			sq.Like{"LOWER(r.name)": pattern},
			sq.Like{"LOWER(u.name)": pattern},
			sq.Like{"LOWER(u.email)": pattern},
		})
	}
	return b
}

func buildReportList(f ReportFilter) (list, count sq.SelectBuilder) {
	list = reportWhere(reportSelect(f.ViewerID), f).
		OrderBy(orderBy(f.Sort, reportSortColumns, "price_submission_date", "pr.id")...)
	list = paginate(list, f.Page)

	count = reportWhere(sq.Select("COUNT(*)").
		From("price_reports pr").
		Join("products p ON p.id = pr.product_id").
		Join("retailers r ON r.id = pr.retailer_id").
		LeftJoin("users u ON u.id = pr.user_id"), f)
	return list, count
}

func (s *MySQLStore) collectReports(ctx context.Context, b sq.SelectBuilder) ([]models.PriceReport, error) {
	rows, err := s.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []models.PriceReport{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return reports, nil
}

func (s *MySQLStore) ListReports(ctx context.Context, f ReportFilter) ([]models.PriceReport, int, error) {
	listQ, countQ := buildReportList(f)

	total, err := s.count(ctx, countQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "count price reports")
	}
	reports, err := s.collectReports(ctx, listQ)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list price reports")
	}
	return reports, total, nil
}

func (s *MySQLStore) GetReport(ctx context.Context, id, viewerID int64) (*models.PriceReport, error) {
	row, err := s.queryRow(ctx, reportSelect(viewerID).Where(sq.Eq{"pr.id": id}))
	if err != nil {
		return nil, err
	}
	return scanReport(row)
}

var reportInsertColumns = []string{
	"product_id", "retailer_id", "user_id", "claim_user_id",
	"price_submission_date", "price_valid_from", "price_valid_to",
	"unit_for_price", "quantity_for_price", "regular_price", "sale_price",
	"is_on_sale", "source", "report_type", "status", "notes",
}

func reportInsert(r *models.PriceReport) sq.InsertBuilder {
	return sq.Insert("price_reports").
		Columns(reportInsertColumns...).
		Values(
			r.ProductID, r.RetailerID, r.UserID, r.ClaimUserID,
			r.PriceSubmissionDate, r.PriceValidFrom, r.PriceValidTo,
			r.UnitForPrice, r.QuantityForPrice, r.RegularPrice, r.SalePrice,
			r.IsOnSale, r.Source, r.ReportType, r.Status, r.Notes,
		)
}

func (s *MySQLStore) InsertReport(ctx context.Context, r *models.PriceReport) error {
	res, err := s.exec(ctx, reportInsert(r))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read price report id")
	}
	r.ID = id
	return nil
}

// buildUpsert relies on uq_price_reports_claim. LAST_INSERT_ID(id) makes the
// driver report the existing row's id when the claim is refreshed.
func buildUpsert(r *models.PriceReport, overwrite []string) sq.InsertBuilder {
	claim := r.UserID
	r.ClaimUserID = &claim

	sets := []string{
		"id = LAST_INSERT_ID(id)",
		"unit_for_price = VALUES(unit_for_price)",
		"regular_price = VALUES(regular_price)",
		"source = VALUES(source)",
		"status = VALUES(status)",
	}
	for _, col := range filterOverwrite(overwrite) {
		sets = append(sets, col+" = VALUES("+col+")")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	return reportInsert(r).Suffix("ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
}

func (s *MySQLStore) UpsertOpenReport(ctx context.Context, r *models.PriceReport, overwrite []string) (int64, bool, error) {
	res, err := s.exec(ctx, buildUpsert(r, overwrite))
	if err != nil {
		return 0, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, errors.Wrap(err, "read price report id")
	}
	// 1 = inserted, 2 = existing row changed, 0 = existing row unchanged.
	n, err := res.RowsAffected()
	if err != nil {
		return 0, false, errors.Wrap(err, "rows affected")
	}
	r.ID = id
	return id, n == 1, nil
}

func (s *MySQLStore) UpdateReport(ctx context.Context, r *models.PriceReport) error {
	_, err := s.exec(ctx, sq.Update("price_reports").
		SetMap(map[string]any{
			"product_id":            r.ProductID,
			"retailer_id":           r.RetailerID,
			"user_id":               r.UserID,
			"claim_user_id":         r.ClaimUserID,
			"price_submission_date": r.PriceSubmissionDate,
			"price_valid_from":      r.PriceValidFrom,
			"price_valid_to":        r.PriceValidTo,
			"unit_for_price":        r.UnitForPrice,
			"quantity_for_price":    r.QuantityForPrice,
			"regular_price":         r.RegularPrice,
			"sale_price":            r.SalePrice,
			"is_on_sale":            r.IsOnSale,
			"source":                r.Source,
			"report_type":           r.ReportType,
			"status":                r.Status,
			"notes":                 r.Notes,
			"updated_at":            sq.Expr("CURRENT_TIMESTAMP"),
		}).
		Where(sq.Eq{"id": r.ID}))
	return err
}

func (s *MySQLStore) UpdateReportStatus(ctx context.Context, id int64, status string) error {
	_, err := s.exec(ctx, sq.Update("price_reports").
		Set("status", status).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": id}))
	return err
}

func (s *MySQLStore) DeleteReport(ctx context.Context, id int64) error {
	return s.deleteByID(ctx, "price_reports", id)
}

func (s *MySQLStore) ReportExists(ctx context.Context, id int64) (bool, error) {
	n, err := s.count(ctx, sq.Select("COUNT(*)").From("price_reports").Where(sq.Eq{"id": id}))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// --- Likes ---

func (s *MySQLStore) AddLike(ctx context.Context, userID, priceID int64) error {
	_, err := s.exec(ctx, sq.Insert("price_report_likes").
		Options("IGNORE").
		Columns("user_id", "price_id").
		Values(userID, priceID))
	return err
}

func (s *MySQLStore) RemoveLike(ctx context.Context, userID, priceID int64) error {
	_, err := s.exec(ctx, sq.Delete("price_report_likes").
		Where(sq.Eq{"user_id": userID, "price_id": priceID}))
	return err
}

func (s *MySQLStore) CountLikes(ctx context.Context, priceID int64) (int, error) {
	return s.count(ctx, sq.Select("COUNT(*)").From("price_report_likes").Where(sq.Eq{"price_id": priceID}))
}

// --- Catalog price lookups ---

func buildApprovedPrices(productIDs []int64, asOf models.Date) sq.SelectBuilder {
	return reportSelect(0).
		Where(sq.Eq{"pr.product_id": productIDs, "pr.status": models.StatusApproved}).
		Where(sq.Or{
			sq.Eq{"pr.price_valid_to": nil},
			sq.GtOrEq{"pr.price_valid_to": asOf},
		})
}

func (s *MySQLStore) ApprovedPricesForProducts(ctx context.Context, productIDs []int64, asOf models.Date) ([]models.PriceReport, error) {
	if len(productIDs) == 0 {
		return []models.PriceReport{}, nil
	}
	reports, err := s.collectReports(ctx, buildApprovedPrices(productIDs, asOf))
	return reports, errors.Wrap(err, "approved prices for products")
}

func (s *MySQLStore) ProductPriceExamples(ctx context.Context, productID, viewerID int64) ([]models.PriceReport, error) {
	reports, err := s.collectReports(ctx, reportSelect(viewerID).
		Where(sq.Eq{"pr.product_id": productID, "pr.status": models.StatusApproved, "r.is_active": true}).
		OrderBy("pr.price_submission_date DESC", "pr.id DESC"))
	return reports, errors.Wrap(err, "product price examples")
}
