package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func token(t *testing.T, tm *auth.TokenManager, id int64, role string) string {
	t.Helper()
	tok, err := tm.Generate(&models.User{ID: id, Role: role, Email: "u@example.com"})
	require.NoError(t, err)
	return tok
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	expired := auth.NewTokenManager("secret", -time.Minute)
	other := auth.NewTokenManager("other-secret", time.Hour)

	r := gin.New()
	r.GET("/me", Authenticate(tm), func(c *gin.Context) {
		id := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"id": id.UserID, "role": c.GetString(UserRoleKey)})
	})

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"valid", "Bearer " + token(t, tm, 7, models.RoleUser), http.StatusOK, ""},
		{"lower-case scheme", "bearer " + token(t, tm, 7, models.RoleUser), http.StatusOK, ""},
		{"missing", "", http.StatusUnauthorized, msgNoToken},
		{"not bearer", "Basic abc", http.StatusUnauthorized, msgNoToken},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, msgNoToken},
		{"expired", "Bearer " + token(t, expired, 7, models.RoleUser), http.StatusUnauthorized, msgTokenExpired},
		{"wrong signature", "Bearer " + token(t, other, 7, models.RoleUser), http.StatusForbidden, msgInvalidToken},
		{"garbage", "Bearer not.a.token", http.StatusForbidden, msgInvalidToken},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, decodeError(t, rec)["error"])
				return
			}
			assert.JSONEq(t, `{"id":7,"role":"user"}`, rec.Body.String())
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	r := gin.New()
	r.GET("/list", OptionalAuth(tm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"viewer": CurrentIdentity(c).ID()})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/list", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"viewer":0}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tm, 3, models.RoleAdmin))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"viewer":3}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/list", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthorizeRole(t *testing.T) {
	tm := auth.NewTokenManager("secret", time.Hour)
	r := gin.New()
	r.DELETE("/admin", Authenticate(tm), AuthorizeRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.DELETE("/unguarded", AuthorizeRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		path   string
		role   string
		status int
	}{
		{"admin allowed", "/admin", models.RoleAdmin, http.StatusNoContent},
		{"user rejected", "/admin", models.RoleUser, http.StatusForbidden},
		{"editor rejected", "/admin", models.RoleEditor, http.StatusForbidden},
		{"no identity", "/unguarded", "", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, tc.path, nil)
			if tc.role != "" {
				req.Header.Set("Authorization", "Bearer "+token(t, tm, 1, tc.role))
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusForbidden {
				assert.Equal(t, msgWrongRole, decodeError(t, rec)["error"])
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-incoming-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-incoming-123", rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-incoming-123", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, rec.Header().Get(RequestIDHeader), rec.Body.String())
}

func TestRequestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tm := auth.NewTokenManager("secret", time.Hour)

	r := gin.New()
	r.Use(RequestID(), RequestLog(zap.New(core)))
	r.GET("/ok", OptionalAuth(tm), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, tm, 42, models.RoleUser))
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	ok := entries[0].ContextMap()
	assert.Equal(t, "/ok", ok["path"])
	assert.Equal(t, int64(200), ok["status"])
	assert.Equal(t, int64(42), ok["user_id"])
	assert.NotEmpty(t, ok["request_id"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/api/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"app error", apperr.NotFound("Product not found"), http.StatusNotFound, "Product not found"},
		{"wrapped app error", errors.Wrap(apperr.Forbidden("nope"), "ctx"), http.StatusForbidden, "nope"},
		{"duplicate", errors.Wrap(store.ErrDuplicate, "insert"), http.StatusConflict, "Resource already exists."},
		{"referenced", store.ErrReferenced, http.StatusConflict, "Resource is referenced by other records."},
		{"invalid reference", errors.Wrap(store.ErrInvalidReference, "insert"), http.StatusBadRequest, "Referenced resource does not exist."},
		{"constraint", store.ErrConstraint, http.StatusBadRequest, "Invalid data or constraint violation."},
		{"raw fk violation", &mysql.MySQLError{Number: 1452, Message: "fk"}, http.StatusBadRequest, "Referenced resource does not exist."},
		{"raw duplicate", errors.Wrap(&mysql.MySQLError{Number: 1062}, "x"), http.StatusConflict, "Resource already exists."},
		{"raw check", &mysql.MySQLError{Number: 3819}, http.StatusBadRequest, "Invalid data or constraint violation."},
		{"expired token", auth.ErrTokenExpired, http.StatusUnauthorized, msgTokenExpired},
		{"invalid token", auth.ErrInvalidToken, http.StatusForbidden, msgInvalidToken},
		{"raw other mysql", &mysql.MySQLError{Number: 1205}, http.StatusInternalServerError, "Something went wrong on the server."},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "Something went wrong on the server."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err)
			assert.Equal(t, tc.status, got.Status())
			assert.Equal(t, tc.msg, got.Message)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	newRouter := func(debug bool, log *zap.Logger) *gin.Engine {
		r := gin.New()
		r.Use(ErrorHandler(log, debug))
		r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("connection refused")) })
		r.GET("/conflict", func(c *gin.Context) { _ = c.Error(apperr.Conflict("Email already registered.")) })
		r.GET("/ok", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
		return r
	}

	core, logs := observer.New(zap.ErrorLevel)
	prod := newRouter(false, zap.New(core))

	rec := httptest.NewRecorder()
	prod.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Something went wrong on the server."}, decodeError(t, rec))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "connection refused")

	rec = httptest.NewRecorder()
	prod.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, logs.Len(), "client errors are not logged")

	rec = httptest.NewRecorder()
	prod.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	dev := newRouter(true, zap.NewNop())
	rec = httptest.NewRecorder()
	dev.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	body := decodeError(t, rec)
	assert.Equal(t, "Something went wrong on the server.", body["error"])
	assert.Contains(t, body["details"], "connection refused")
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong on the server.", decodeError(t, rec)["error"])
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kaboom", logs.All()[0].ContextMap()["panic"])
}
