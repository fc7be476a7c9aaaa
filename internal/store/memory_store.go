package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/01moynul/bashrometer-golang/internal/models"
)

type likeKey struct {
	userID  int64
	priceID int64
}

type claimKey struct {
	productID  int64
	retailerID int64
	userID     int64
}

// MemoryStore keeps every table in-process. It enforces the same unique,
// foreign-key and open-claim rules as the MySQL schema.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[int64]models.User
	emails    map[string]int64
	products  map[int64]models.Product
	retailers map[int64]models.Retailer
	reports   map[int64]models.PriceReport
	claims    map[claimKey]int64
	likes     map[likeKey]time.Time

	nextUser, nextProduct, nextRetailer, nextReport int64

	now func() time.Time
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[int64]models.User),
		emails:    make(map[string]int64),
		products:  make(map[int64]models.Product),
		retailers: make(map[int64]models.Retailer),
		reports:   make(map[int64]models.PriceReport),
		claims:    make(map[claimKey]int64),
		likes:     make(map[likeKey]time.Time),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Close() error { return nil }

// --- Users ---

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[u.Email]; taken {
		return ErrDuplicate
	}
	m.nextUser++
	u.ID = m.nextUser
	u.CreatedAt = m.now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = *u
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	id, ok := m.emails[email]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.GetUserByID(ctx, id)
}

// --- Products ---

func (m *MemoryStore) ListProducts(_ context.Context, f ProductFilter) ([]models.Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []models.Product{}
	for _, p := range m.products {
		if !containsFold(p.Category, f.Category) || !containsFold(p.Brand, f.Brand) ||
			!containsFold(p.AnimalType, f.AnimalType) || !containsFold(&p.Name, f.NameLike) {
			continue
		}
		if f.KosherLevel != "" && (p.KosherLevel == nil || *p.KosherLevel != f.KosherLevel) {
			continue
		}
		if f.IsActive != nil && p.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, p)
	}

	key := func(p models.Product) string {
		switch f.Sort.Column {
		case "brand":
			return lowerOrEmpty(p.Brand)
		case "category":
			return lowerOrEmpty(p.Category)
		default:
			return strings.ToLower(p.Name)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := key(matched[i]), key(matched[j])
		if a == b {
			return lessID(matched[i].ID, matched[j].ID, f.Sort.Desc)
		}
		return (a < b) != f.Sort.Desc
	})

	return window(matched, f.Page), len(matched), nil
}

func (m *MemoryStore) GetProduct(_ context.Context, id int64) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextProduct++
	p.ID = m.nextProduct
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	p.MinPricePer100g, p.PriceExamples = nil, nil
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) UpdateProduct(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = m.now()
	p.MinPricePer100g, p.PriceExamples = nil, nil
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) DeleteProduct(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.reports {
		if r.ProductID == id {
			return ErrReferenced
		}
	}
	delete(m.products, id)
	return nil
}

// --- Retailers ---

func (m *MemoryStore) ListRetailers(_ context.Context, f RetailerFilter) ([]models.Retailer, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []models.Retailer{}
	for _, r := range m.retailers {
		if !containsFold(r.Chain, f.Chain) || !containsFold(&r.Type, f.Type) || !containsFold(&r.Name, f.NameLike) {
			continue
		}
		if f.IsActive != nil && r.IsActive != *f.IsActive {
			continue
		}
		matched = append(matched, r)
	}

	key := func(r models.Retailer) string {
		switch f.Sort.Column {
		case "chain":
			return lowerOrEmpty(r.Chain)
		case "type":
			return strings.ToLower(r.Type)
		default:
			return strings.ToLower(r.Name)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := key(matched[i]), key(matched[j])
		if a == b {
			return lessID(matched[i].ID, matched[j].ID, f.Sort.Desc)
		}
		return (a < b) != f.Sort.Desc
	})

	return window(matched, f.Page), len(matched), nil
}

func (m *MemoryStore) GetRetailer(_ context.Context, id int64) (*models.Retailer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.retailers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryStore) CreateRetailer(_ context.Context, r *models.Retailer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRetailer++
	r.ID = m.nextRetailer
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.retailers[r.ID] = *r
	return nil
}

func (m *MemoryStore) UpdateRetailer(_ context.Context, r *models.Retailer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.retailers[r.ID]
	if !ok {
		return ErrNotFound
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = m.now()
	m.retailers[r.ID] = *r
	return nil
}

func (m *MemoryStore) DeleteRetailer(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.retailers[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.reports {
		if r.RetailerID == id {
			return ErrReferenced
		}
	}
	delete(m.retailers, id)
	return nil
}

// --- Price reports ---

// decorate fills the joined and like columns. Callers hold m.mu.
func (m *MemoryStore) decorate(r models.PriceReport, viewerID int64) models.PriceReport {
	p := m.products[r.ProductID]
	r.ProductName = p.Name
	r.DefaultWeightPerUnitGrams = p.DefaultWeightPerUnitGrams
	r.RetailerName = m.retailers[r.RetailerID].Name
	r.UserName = nil
	if u, ok := m.users[r.UserID]; ok {
		r.UserName = u.Name
	}
	r.LikesCount = m.countLikes(r.ID)
	_, r.CurrentUserLiked = m.likes[likeKey{userID: viewerID, priceID: r.ID}]
	r.CalculatedPricePer100g = nil
	return r
}

func (m *MemoryStore) matchesReport(r models.PriceReport, f ReportFilter) bool {
	switch {
	case f.ProductID != nil && r.ProductID != *f.ProductID:
		return false
	case f.RetailerID != nil && r.RetailerID != *f.RetailerID:
		return false
	case f.UserID != nil && r.UserID != *f.UserID:
		return false
	case f.OnSale != nil && r.IsOnSale != *f.OnSale:
		return false
	case f.DateFrom != nil && r.PriceSubmissionDate.Before(f.DateFrom.Time):
		return false
	case f.DateTo != nil && r.PriceSubmissionDate.After(f.DateTo.Time):
		return false
	case f.Status != "" && r.Status != f.Status:
		return false
	}
	if f.Search == "" {
		return true
	}
	u := m.users[r.UserID]
	return containsFold(&r.ProductName, f.Search) || containsFold(&r.RetailerName, f.Search) ||
		(u.Name != nil && containsFold(u.Name, f.Search)) || containsFold(&u.Email, f.Search)
}

func (m *MemoryStore) ListReports(_ context.Context, f ReportFilter) ([]models.PriceReport, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []models.PriceReport{}
	for _, r := range m.reports {
		r = m.decorate(r, f.ViewerID)
		if m.matchesReport(r, f) {
			matched = append(matched, r)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch f.Sort.Column {
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		case "regular_price":
			cmp = compareFloat(a.RegularPrice, b.RegularPrice)
		default:
			cmp = a.PriceSubmissionDate.Compare(b.PriceSubmissionDate.Time)
		}
		if cmp == 0 {
			return lessID(a.ID, b.ID, f.Sort.Desc)
		}
		return (cmp < 0) != f.Sort.Desc
	})

	return window(matched, f.Page), len(matched), nil
}

func (m *MemoryStore) GetReport(_ context.Context, id, viewerID int64) (*models.PriceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	r = m.decorate(r, viewerID)
	return &r, nil
}

// checkReportRefs mirrors the price_reports foreign keys. Callers hold m.mu.
func (m *MemoryStore) checkReportRefs(r *models.PriceReport) error {
	if _, ok := m.products[r.ProductID]; !ok {
		return ErrInvalidReference
	}
	if _, ok := m.retailers[r.RetailerID]; !ok {
		return ErrInvalidReference
	}
	if _, ok := m.users[r.UserID]; !ok {
		return ErrInvalidReference
	}
	return nil
}

func (m *MemoryStore) insertLocked(r *models.PriceReport) {
	m.nextReport++
	r.ID = m.nextReport
	r.CreatedAt = m.now()
	r.UpdatedAt = r.CreatedAt
	m.reports[r.ID] = *r
	if r.ClaimUserID != nil {
		m.claims[claimKey{r.ProductID, r.RetailerID, *r.ClaimUserID}] = r.ID
	}
}

func (m *MemoryStore) InsertReport(_ context.Context, r *models.PriceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReportRefs(r); err != nil {
		return err
	}
	if r.ClaimUserID != nil {
		if _, taken := m.claims[claimKey{r.ProductID, r.RetailerID, *r.ClaimUserID}]; taken {
			return ErrDuplicate
		}
	}
	m.insertLocked(r)
	return nil
}

func (m *MemoryStore) UpsertOpenReport(_ context.Context, r *models.PriceReport, overwrite []string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkReportRefs(r); err != nil {
		return 0, false, err
	}

	claim := r.UserID
	r.ClaimUserID = &claim
	id, exists := m.claims[claimKey{r.ProductID, r.RetailerID, claim}]
	if !exists {
		m.insertLocked(r)
		return r.ID, true, nil
	}

	cur := m.reports[id]
	cur.UnitForPrice = r.UnitForPrice
	cur.RegularPrice = r.RegularPrice
	cur.Source = r.Source
	cur.Status = r.Status
	for _, col := range filterOverwrite(overwrite) {
		switch col {
		case ColSubmissionDate:
			cur.PriceSubmissionDate = r.PriceSubmissionDate
		case ColValidFrom:
			cur.PriceValidFrom = r.PriceValidFrom
		case ColValidTo:
			cur.PriceValidTo = r.PriceValidTo
		case ColQuantity:
			cur.QuantityForPrice = r.QuantityForPrice
		case ColSalePrice:
			cur.SalePrice = r.SalePrice
		case ColIsOnSale:
			cur.IsOnSale = r.IsOnSale
		case ColReportType:
			cur.ReportType = r.ReportType
		case ColNotes:
			cur.Notes = r.Notes
		}
	}
	cur.UpdatedAt = m.now()
	m.reports[id] = cur
	r.ID = id
	return id, false, nil
}

func (m *MemoryStore) UpdateReport(_ context.Context, r *models.PriceReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.reports[r.ID]
	if !ok {
		return ErrNotFound
	}
	if err := m.checkReportRefs(r); err != nil {
		return err
	}
	if r.ClaimUserID != nil {
		key := claimKey{r.ProductID, r.RetailerID, *r.ClaimUserID}
		if owner, taken := m.claims[key]; taken && owner != r.ID {
			return ErrDuplicate
		}
	}

	if old.ClaimUserID != nil {
		delete(m.claims, claimKey{old.ProductID, old.RetailerID, *old.ClaimUserID})
	}
	if r.ClaimUserID != nil {
		m.claims[claimKey{r.ProductID, r.RetailerID, *r.ClaimUserID}] = r.ID
	}
	r.CreatedAt = old.CreatedAt
	r.UpdatedAt = m.now()
	m.reports[r.ID] = *r
	return nil
}

func (m *MemoryStore) UpdateReportStatus(_ context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = m.now()
	m.reports[id] = r
	return nil
}

func (m *MemoryStore) DeleteReport(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return ErrNotFound
	}
	if r.ClaimUserID != nil {
		delete(m.claims, claimKey{r.ProductID, r.RetailerID, *r.ClaimUserID})
	}
	for k := range m.likes {
		if k.priceID == id {
			delete(m.likes, k)
		}
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryStore) ReportExists(_ context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.reports[id]
	return ok, nil
}

// --- Likes ---

func (m *MemoryStore) AddLike(_ context.Context, userID, priceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[priceID]; !ok {
		return ErrInvalidReference
	}
	if _, ok := m.users[userID]; !ok {
		return ErrInvalidReference
	}
	key := likeKey{userID: userID, priceID: priceID}
	if _, ok := m.likes[key]; !ok {
		m.likes[key] = m.now()
	}
	return nil
}

func (m *MemoryStore) RemoveLike(_ context.Context, userID, priceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.likes, likeKey{userID: userID, priceID: priceID})
	return nil
}

func (m *MemoryStore) CountLikes(_ context.Context, priceID int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countLikes(priceID), nil
}

func (m *MemoryStore) countLikes(priceID int64) int {
	n := 0
	for k := range m.likes {
		if k.priceID == priceID {
			n++
		}
	}
	return n
}

// --- Catalog price lookups ---

func (m *MemoryStore) ApprovedPricesForProducts(_ context.Context, productIDs []int64, asOf models.Date) ([]models.PriceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[int64]bool, len(productIDs))
	for _, id := range productIDs {
		wanted[id] = true
	}
	out := []models.PriceReport{}
	for _, r := range m.reports {
		if !wanted[r.ProductID] || r.Status != models.StatusApproved {
			continue
		}
		if r.PriceValidTo != nil && r.PriceValidTo.Before(asOf.Time) {
			continue
		}
		out = append(out, m.decorate(r, 0))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) ProductPriceExamples(_ context.Context, productID, viewerID int64) ([]models.PriceReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.PriceReport{}
	for _, r := range m.reports {
		if r.ProductID != productID || r.Status != models.StatusApproved || !m.retailers[r.RetailerID].IsActive {
			continue
		}
		out = append(out, m.decorate(r, viewerID))
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].PriceSubmissionDate.Compare(out[j].PriceSubmissionDate.Time); c != 0 {
			return c > 0
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// --- helpers ---

// containsFold reports whether s contains sub, ignoring case. An empty sub
// matches everything; a nil s matches only an empty sub.
func containsFold(s *string, sub string) bool {
	if sub == "" {
		return true
	}
	if s == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*s), strings.ToLower(sub))
}

func lowerOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(*s)
}

func lessID(a, b int64, desc bool) bool {
	if desc {
		return a > b
	}
	return a < b
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func window[T any](items []T, p models.Page) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}
