package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/middleware"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/services"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

type reportResponse struct {
	Message string `json:"message"`
	*models.PriceReport
}

type likeResponse struct {
	Message string `json:"message"`
	*models.LikeSummary
}

type StatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending_approval approved rejected expired edited"`
}

// ListPrices handles GET /api/prices. Non-admin callers only ever get
// approved reports; min_price and max_price filter the returned page on
// the normalized price per 100g.
func (h *Handlers) ListPrices(c *gin.Context) {
	// 1. --- Read the query ---
	p, err := page(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	q := query{c: c}
	rq := services.ReportQuery{
		Filter: store.ReportFilter{
			ProductID:  q.integer("product_id"),
			RetailerID: q.integer("retailer_id"),
			UserID:     q.integer("user_id"),
			OnSale:     q.boolean("on_sale"),
			DateFrom:   q.date("date_from"),
			DateTo:     q.date("date_to"),
			Status:     q.str("status"),
			Search:     q.str("search"),
			Page:       p,
			Sort:       sortParam(c, true),
		},
		MinPrice: q.number("min_price"),
		MaxPrice: q.number("max_price"),
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	// 2. --- Query ---
	reports, info, err := h.Prices.List(c.Request.Context(), middleware.CurrentIdentity(c), rq)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, listResponse[models.PriceReport]{Data: reports, PageInfo: info})
}

func (h *Handlers) GetPrice(c *gin.Context) {
	id, err := pathID(c, "id", "price entry")
	if err != nil {
		_ = c.Error(err)
		return
	}
	report, err := h.Prices.Get(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// CreatePrice handles POST /api/prices. A regular user's repeat submission
// for the same product and retailer refreshes their open report and
// answers 200 instead of 201.
func (h *Handlers) CreatePrice(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input services.CreateReportInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}

	// 2. --- Create or refresh ---
	report, created, err := h.Prices.Create(c.Request.Context(), middleware.CurrentIdentity(c), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// 3. --- Send Success Response ---
	if created {
		c.JSON(http.StatusCreated, reportResponse{Message: "Price report created successfully.", PriceReport: report})
		return
	}
	c.JSON(http.StatusOK, reportResponse{Message: "Price report updated successfully.", PriceReport: report})
}

func (h *Handlers) UpdatePrice(c *gin.Context) {
	id, err := pathID(c, "id", "price entry")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var patch services.ReportPatch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	report, err := h.Prices.Update(c.Request.Context(), middleware.CurrentIdentity(c), id, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handlers) DeletePrice(c *gin.Context) {
	id, err := pathID(c, "id", "price entry")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.Prices.Delete(c.Request.Context(), middleware.CurrentIdentity(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) LikePrice(c *gin.Context) {
	id, err := pathID(c, "id", "price report")
	if err != nil {
		_ = c.Error(err)
		return
	}
	summary, err := h.Prices.Like(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, likeResponse{Message: "Price report liked/already liked.", LikeSummary: summary})
}

func (h *Handlers) UnlikePrice(c *gin.Context) {
	id, err := pathID(c, "id", "price report")
	if err != nil {
		_ = c.Error(err)
		return
	}
	summary, err := h.Prices.Unlike(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, likeResponse{Message: "Price report unliked successfully (or was not liked by user).", LikeSummary: summary})
}

// UpdatePriceStatus handles PUT /api/prices/:id/status (admin only).
func (h *Handlers) UpdatePriceStatus(c *gin.Context) {
	id, err := pathID(c, "id", "price report")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var input StatusInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}
	report, err := h.Prices.UpdateStatus(c.Request.Context(), middleware.CurrentIdentity(c), id, input.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
