package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/models"
)

func testContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c
}

func TestPage(t *testing.T) {
	tests := []struct {
		query   string
		want    models.Page
		wantErr bool
	}{
		{"", models.Page{Limit: 10}, false},
		{"?limit=25&offset=50", models.Page{Limit: 25, Offset: 50}, false},
		{"?limit=1000", models.Page{Limit: 100}, false},
		{"?limit=0", models.Page{}, true},
		{"?limit=-5", models.Page{}, true},
		{"?limit=ten", models.Page{}, true},
		{"?offset=-1", models.Page{}, true},
		{"?offset=1.5", models.Page{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			got, err := page(testContext("/x" + tc.query))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSortParam(t *testing.T) {
	assert.Equal(t, models.Sort{Column: "name"}, sortParam(testContext("/x?sort_by=name"), false))
	assert.Equal(t, models.Sort{Column: "brand", Desc: true}, sortParam(testContext("/x?sort_by=brand&order=DESC"), false))
	assert.Equal(t, models.Sort{Desc: true}, sortParam(testContext("/x?order=sideways"), true))
	assert.Equal(t, models.Sort{Desc: false}, sortParam(testContext("/x?order=asc"), true))
}

func TestQueryKeepsFirstError(t *testing.T) {
	q := query{c: testContext("/x?product_id=7&on_sale=yes&min_price=abc&date_from=2024-01-31")}

	assert.Equal(t, int64(7), *q.integer("product_id"))
	assert.Nil(t, q.boolean("on_sale"))
	assert.Nil(t, q.number("min_price"))
	require.Error(t, q.err)
	assert.Contains(t, q.err.Error(), "on_sale")

	ok := query{c: testContext("/x?date_from=2024-01-31&name=Steak")}
	assert.Equal(t, "2024-01-31", ok.date("date_from").String())
	assert.Equal(t, "Steak", ok.firstOf("name_like", "name"))
	assert.Nil(t, ok.integer("retailer_id"))
	assert.NoError(t, ok.err)
}

func TestPathID(t *testing.T) {
	c := testContext("/api/products/12")
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	id, err := pathID(c, "id", "product")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	c.Params = gin.Params{{Key: "id", Value: "12abc"}}
	_, err = pathID(c, "id", "product")
	require.Error(t, err)
	assert.Equal(t, "Invalid product ID format. Must be an integer.", err.Error())
}

func TestBindJSON(t *testing.T) {
	bind := func(body string, dst any) error {
		c := testContext("/x")
		c.Request = httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(body))
		c.Request.Header.Set("Content-Type", "application/json")
		return bindJSON(c, dst)
	}

	tests := []struct {
		name string
		body string
		dst  any
		want string
	}{
		{"malformed", `{"status":`, &StatusInput{}, "Invalid JSON payload."},
		{"missing status", `{}`, &StatusInput{}, "Status is required."},
		{"unknown status", `{"status":"published"}`, &StatusInput{}, "Invalid status. Must be one of: pending_approval, approved, rejected, expired, edited."},
		{"missing password", `{"email":"a@b.io"}`, &LoginInput{}, "Email and password are required."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := bind(tc.body, tc.dst)
			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tc.want, appErr.Message)
		})
	}

	var in StatusInput
	require.NoError(t, bind(`{"status":"approved"}`, &in))
	assert.Equal(t, "approved", in.Status)
}
