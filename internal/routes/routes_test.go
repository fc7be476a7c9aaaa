package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/config"
	"github.com/01moynul/bashrometer-golang/internal/handlers"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

type response struct {
	Code int
	Body map[string]any
	Raw  string
}

func newClient(t *testing.T, cfg config.Config) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	tm := auth.NewTokenManager("test-secret", 2*time.Hour)
	h := handlers.New(st, tm, cfg, zap.NewNop())
	require.NoError(t, h.Auth.EnsureBootstrapAdmin(context.Background(), "admin@example.com", "adminpass", "Admin"))

	return &apiClient{t: t, router: SetupRouter(h, cfg, zap.NewNop())}
}

func (a *apiClient) do(method, path, token string, body any) response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	res := response{Code: rec.Code, Raw: rec.Body.String()}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &res.Body), rec.Body.String())
	}
	return res
}

func (a *apiClient) login(email, password string) string {
	a.t.Helper()
	res := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, res.Code, res.Raw)
	return res.Body["token"].(string)
}

func (a *apiClient) register(email string) string {
	a.t.Helper()
	res := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusCreated, res.Code, res.Raw)
	return res.Body["token"].(string)
}

func testConfig() config.Config {
	return config.Config{Env: config.EnvTest, AllowedOrigins: []string{"http://localhost:3000"}}
}

func TestHealthRoutes(t *testing.T) {
	api := newClient(t, testConfig())

	res := api.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Bashrometer API is running!", res.Raw)

	res = api.do(http.MethodGet, "/api/ping", "", nil)
	assert.Equal(t, "pong!", res.Body["message"])

	res = api.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAuthFlow(t *testing.T) {
	api := newClient(t, testConfig())

	res := api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Noa", "email": "Noa@Example.com", "password": "password123", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	assert.Equal(t, "User registered successfully.", res.Body["message"])
	user := res.Body["user"].(map[string]any)
	assert.Equal(t, "noa@example.com", user["email"])
	assert.Equal(t, "user", user["role"])
	assert.NotContains(t, user, "password_hash")

	res = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "noa@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Email already registered.", res.Body["error"])

	res = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "x@y.io", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "noa@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	wrong := res.Body
	res = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, wrong, res.Body)

	token := api.login("noa@example.com", "password123")
	res = api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "noa@example.com", res.Body["email"])
	assert.Equal(t, "Noa", res.Body["name"])

	res = api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "Access denied. No token provided.", res.Body["error"])

	res = api.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = api.do(http.MethodPost, "/api/auth/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = api.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "noa@example.com"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Email and password are required.", res.Body["error"])

	res = api.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "long@example.com", "password": strings.Repeat("x", 100),
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Password must be at most 72 bytes long.", res.Body["error"])
}

func TestAdminProvisioning(t *testing.T) {
	api := newClient(t, testConfig())
	admin := api.login("admin@example.com", "adminpass")
	user := api.register("user@example.com")

	body := map[string]string{"email": "editor@example.com", "password": "password123", "role": "editor"}
	res := api.do(http.MethodPost, "/api/admin/users", user, body)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = api.do(http.MethodPost, "/api/admin/users", admin, body)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	assert.Equal(t, "editor", res.Body["user"].(map[string]any)["role"])
	assert.NotContains(t, res.Body, "token")
}

func TestPriceReportScenario(t *testing.T) {
	api := newClient(t, testConfig())
	admin := api.login("admin@example.com", "adminpass")
	api.register("a@example.com")
	userA := api.login("a@example.com", "password123")
	userB := api.register("b@example.com")

	// --- Catalog setup ---
	res := api.do(http.MethodPost, "/api/products", userA, map[string]any{"name": "Entrecote", "unit_of_measure": "kg"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = api.do(http.MethodPost, "/api/products", "", map[string]any{"name": "Entrecote", "unit_of_measure": "kg"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = api.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "Entrecote", "unit_of_measure": "kg", "category": "beef"})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	productID := int64(res.Body["id"].(float64))
	assert.Equal(t, "entrecote", res.Body["slug"])

	res = api.do(http.MethodPost, "/api/retailers", admin, map[string]any{"name": "Meat Market", "type": "butcher"})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	retailerID := int64(res.Body["id"].(float64))

	// --- First submission creates, second refreshes ---
	submit := map[string]any{
		"product_id": productID, "retailer_id": retailerID,
		"regular_price": 100.50, "unit_for_price": "kg", "source": "user_report",
	}
	res = api.do(http.MethodPost, "/api/prices", userA, submit)
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	assert.Equal(t, "Price report created successfully.", res.Body["message"])
	assert.Equal(t, "pending_approval", res.Body["status"])
	assert.Equal(t, 10.05, res.Body["calculated_price_per_100g"])
	reportID := res.Body["id"].(float64)

	submit["regular_price"] = 110
	res = api.do(http.MethodPost, "/api/prices", userA, submit)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "Price report updated successfully.", res.Body["message"])
	assert.Equal(t, reportID, res.Body["id"])
	assert.Equal(t, 110.0, res.Body["regular_price"])

	reportPath := fmt.Sprintf("/api/prices/%d", int64(reportID))

	// --- Visibility ---
	res = api.do(http.MethodGet, "/api/prices", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Empty(t, res.Body["data"])
	res = api.do(http.MethodGet, "/api/prices?status=pending_approval", userB, nil)
	assert.Empty(t, res.Body["data"])
	res = api.do(http.MethodGet, "/api/prices?status=pending_approval", admin, nil)
	assert.Len(t, res.Body["data"], 1)
	res = api.do(http.MethodGet, "/api/prices", admin, nil)
	assert.Len(t, res.Body["data"], 1)
	pageInfo := res.Body["page_info"].(map[string]any)
	assert.Equal(t, 10.0, pageInfo["limit"])
	assert.Equal(t, 1.0, pageInfo["total_items"])
	assert.Equal(t, 1.0, pageInfo["total_pages"])

	res = api.do(http.MethodGet, reportPath, "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = api.do(http.MethodGet, reportPath, userA, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	// --- Ownership ---
	res = api.do(http.MethodPut, reportPath, userB, map[string]any{"regular_price": 1})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = api.do(http.MethodDelete, reportPath, userB, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = api.do(http.MethodPut, reportPath, userA, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "Forbidden: You are not allowed to update: status.", res.Body["error"])
	res = api.do(http.MethodPut, reportPath, userA, map[string]any{"notes": "fresh cut"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "fresh cut", res.Body["notes"])

	// --- Moderation ---
	res = api.do(http.MethodPut, reportPath+"/status", userA, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, res.Code)
	res = api.do(http.MethodPut, reportPath+"/status", admin, map[string]string{"status": "published"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid status. Must be one of: pending_approval, approved, rejected, expired, edited.", res.Body["error"])
	res = api.do(http.MethodPut, reportPath+"/status", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Status is required.", res.Body["error"])
	res = api.do(http.MethodPut, "/api/prices/9999/status", admin, map[string]string{"status": "approved"})
	assert.Equal(t, http.StatusNotFound, res.Code)
	res = api.do(http.MethodPut, reportPath+"/status", admin, map[string]string{"status": "approved"})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, "approved", res.Body["status"])

	res = api.do(http.MethodGet, "/api/prices?min_price=20", "", nil)
	assert.Empty(t, res.Body["data"])
	res = api.do(http.MethodGet, "/api/prices?max_price=20", "", nil)
	assert.Len(t, res.Body["data"], 1)

	// --- Likes ---
	for i := 0; i < 2; i++ {
		res = api.do(http.MethodPost, reportPath+"/like", userB, nil)
		require.Equal(t, http.StatusOK, res.Code, res.Raw)
		assert.Equal(t, 1.0, res.Body["likesCount"])
		assert.Equal(t, true, res.Body["userLiked"])
	}
	res = api.do(http.MethodDelete, reportPath+"/like", userA, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1.0, res.Body["likesCount"])
	assert.Equal(t, false, res.Body["userLiked"])
	res = api.do(http.MethodPost, "/api/prices/9999/like", userB, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)

	// --- Product detail reflects the approved report ---
	res = api.do(http.MethodGet, fmt.Sprintf("/api/products/%d", productID), userB, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, 11.0, res.Body["min_price_per_100g"])
	examples := res.Body["price_examples"].([]any)
	require.Len(t, examples, 1)
	assert.Equal(t, true, examples[0].(map[string]any)["current_user_liked"])

	// --- Referenced catalog rows cannot be deleted ---
	res = api.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), admin, nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = api.do(http.MethodDelete, reportPath, userA, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
	res = api.do(http.MethodDelete, fmt.Sprintf("/api/products/%d", productID), admin, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestInvalidReferencesAndParams(t *testing.T) {
	api := newClient(t, testConfig())
	user := api.register("u@example.com")

	res := api.do(http.MethodPost, "/api/prices", user, map[string]any{
		"product_id": 42, "retailer_id": 42, "regular_price": 10, "unit_for_price": "kg", "source": "web",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Referenced resource does not exist.", res.Body["error"])

	res = api.do(http.MethodPost, "/api/prices", user, map[string]any{"product_id": 1})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Missing required fields: product_id, retailer_id, unit_for_price, regular_price, source.", res.Body["error"])

	tests := []struct {
		path string
		msg  string
	}{
		{"/api/products/abc", "Invalid product ID format. Must be an integer."},
		{"/api/retailers/-1", "Invalid retailer ID format. Must be an integer."},
		{"/api/products?limit=abc", "Invalid limit. Must be a positive integer."},
		{"/api/products?offset=-1", "Invalid offset. Must be a non-negative integer."},
		{"/api/prices?date_from=yesterday", "Invalid date_from. Use YYYY-MM-DD."},
		{"/api/prices?on_sale=maybe", "Invalid on_sale. Must be true or false."},
		{"/api/prices?product_id=x", "Invalid product_id. Must be an integer."},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			res := api.do(http.MethodGet, tc.path, "", nil)
			assert.Equal(t, http.StatusBadRequest, res.Code)
			assert.Equal(t, tc.msg, res.Body["error"])
		})
	}

	res = api.do(http.MethodGet, "/api/products?limit=500", "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 100.0, res.Body["page_info"].(map[string]any)["limit"])
	assert.NotNil(t, res.Body["data"])
}

func TestInactiveCatalogIsAdminOnly(t *testing.T) {
	api := newClient(t, testConfig())
	admin := api.login("admin@example.com", "adminpass")

	res := api.do(http.MethodPost, "/api/retailers", admin, map[string]any{"name": "Closed Shop", "type": "market", "is_active": false})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	path := fmt.Sprintf("/api/retailers/%d", int64(res.Body["id"].(float64)))

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, path, admin, nil).Code)

	res = api.do(http.MethodGet, "/api/retailers", "", nil)
	assert.Empty(t, res.Body["data"])
	res = api.do(http.MethodGet, "/api/retailers?is_active=false", admin, nil)
	assert.Len(t, res.Body["data"], 1)

	res = api.do(http.MethodPut, path, admin, map[string]any{"is_active": true, "chain": nil})
	require.Equal(t, http.StatusOK, res.Code, res.Raw)
	assert.Equal(t, true, res.Body["is_active"])
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, path, "", nil).Code)

	res = api.do(http.MethodPut, path, admin, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "No fields provided for update.", res.Body["error"])
}

func TestStrictStatusTransitions(t *testing.T) {
	cfg := testConfig()
	cfg.StrictStatusTransitions = true
	api := newClient(t, cfg)
	admin := api.login("admin@example.com", "adminpass")
	user := api.register("u@example.com")

	res := api.do(http.MethodPost, "/api/products", admin, map[string]any{"name": "Wings", "unit_of_measure": "kg"})
	require.Equal(t, http.StatusCreated, res.Code)
	productID := res.Body["id"]
	res = api.do(http.MethodPost, "/api/retailers", admin, map[string]any{"name": "Shop", "type": "market"})
	require.Equal(t, http.StatusCreated, res.Code)
	retailerID := res.Body["id"]

	res = api.do(http.MethodPost, "/api/prices", user, map[string]any{
		"product_id": productID, "retailer_id": retailerID, "regular_price": 30, "unit_for_price": "kg", "source": "web",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Raw)
	path := fmt.Sprintf("/api/prices/%d/status", int64(res.Body["id"].(float64)))

	res = api.do(http.MethodPut, path, admin, map[string]string{"status": "expired"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "Invalid status transition from pending_approval to expired.", res.Body["error"])

	res = api.do(http.MethodPut, path, admin, map[string]string{"status": "rejected"})
	assert.Equal(t, http.StatusOK, res.Code)
}
