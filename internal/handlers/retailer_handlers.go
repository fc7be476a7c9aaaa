package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/middleware"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/services"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

func (h *Handlers) ListRetailers(c *gin.Context) {
	p, err := page(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	q := query{c: c}
	filter := store.RetailerFilter{
		Chain:    q.str("chain"),
		Type:     q.str("type"),
		NameLike: q.firstOf("name_like", "name"),
		IsActive: q.boolean("is_active"),
		Page:     p,
		Sort:     sortParam(c, false),
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	retailers, info, err := h.Catalog.ListRetailers(c.Request.Context(), middleware.CurrentIdentity(c), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, listResponse[models.Retailer]{Data: retailers, PageInfo: info})
}

func (h *Handlers) GetRetailer(c *gin.Context) {
	id, err := pathID(c, "id", "retailer")
	if err != nil {
		_ = c.Error(err)
		return
	}
	retailer, err := h.Catalog.GetRetailer(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, retailer)
}

func (h *Handlers) CreateRetailer(c *gin.Context) {
	var input services.RetailerInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}
	retailer, err := h.Catalog.CreateRetailer(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, retailer)
}

func (h *Handlers) UpdateRetailer(c *gin.Context) {
	id, err := pathID(c, "id", "retailer")
	if err != nil {
		_ = c.Error(err)
		return
	}
	var patch services.RetailerPatch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}
	retailer, err := h.Catalog.UpdateRetailer(c.Request.Context(), id, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, retailer)
}

func (h *Handlers) DeleteRetailer(c *gin.Context) {
	id, err := pathID(c, "id", "retailer")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.Catalog.DeleteRetailer(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
