package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/01moynul/bashrometer-golang/internal/apperr"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/validation"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// listResponse is the envelope of every listing endpoint.
type listResponse[T any] struct {
	Data     []T             `json:"data"`
	PageInfo models.PageInfo `json:"page_info"`
}

// bindMessages are the client messages for binding tag failures.
var bindMessages = validation.Messages{
	"email.required":    "Email and password are required.",
	"password.required": "Email and password are required.",
	"status.required":   "Status is required.",
	"status.oneof":      "Invalid status. Must be one of: pending_approval, approved, rejected, expired, edited.",
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(validation.JSONName)
	}
}

// bindJSON decodes the request body into dst and checks its binding tags.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return validation.Translate(verrs, bindMessages)
	}
	return apperr.Validation("Invalid JSON payload.").WithDetails(err.Error())
}

// pathID parses a positive integer path parameter. label names the entity
// in the error message, e.g. "product".
func pathID(c *gin.Context, param, label string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("Invalid %s ID format. Must be an integer.", label)
	}
	return id, nil
}

// page reads limit and offset. limit defaults to 10 and is capped at 100.
func page(c *gin.Context) (models.Page, error) {
	p := models.Page{Limit: defaultLimit}
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 1 {
			return p, apperr.Validation("Invalid limit. Must be a positive integer.")
		}
		p.Limit = min(n, maxLimit)
	}
	if raw, ok := c.GetQuery("offset"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 {
			return p, apperr.Validation("Invalid offset. Must be a non-negative integer.")
		}
		p.Offset = n
	}
	return p, nil
}

// sortParam reads sort_by and order. Unknown columns fall back to the
// store's default ordering.
func sortParam(c *gin.Context, defaultDesc bool) models.Sort {
	s := models.Sort{Column: strings.TrimSpace(c.Query("sort_by")), Desc: defaultDesc}
	switch strings.ToLower(strings.TrimSpace(c.Query("order"))) {
	case "asc":
		s.Desc = false
	case "desc":
		s.Desc = true
	}
	return s
}

// query is a small accumulator for optional typed query parameters. The
// first parse failure is kept in err.
type query struct {
	c   *gin.Context
	err error
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.c.Query(name))
}

func (q *query) integer(name string) *int64 {
	raw := q.str(name)
	if raw == "" || q.err != nil {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		q.err = apperr.Validationf("Invalid %s. Must be an integer.", name)
		return nil
	}
	return &v
}

func (q *query) number(name string) *float64 {
	raw := q.str(name)
	if raw == "" || q.err != nil {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		q.err = apperr.Validationf("Invalid %s. Must be a number.", name)
		return nil
	}
	return &v
}

func (q *query) boolean(name string) *bool {
	raw := q.str(name)
	if raw == "" || q.err != nil {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		q.err = apperr.Validationf("Invalid %s. Must be true or false.", name)
		return nil
	}
	return &v
}

func (q *query) date(name string) *models.Date {
	raw := q.str(name)
	if raw == "" || q.err != nil {
		return nil
	}
	v, err := models.ParseDate(raw)
	if err != nil {
		q.err = apperr.Validationf("Invalid %s. Use YYYY-MM-DD.", name)
		return nil
	}
	return &v
}

// firstOf returns the first non-empty query value among names.
func (q *query) firstOf(names ...string) string {
	for _, n := range names {
		if v := q.str(n); v != "" {
			return v
		}
	}
	return ""
}
