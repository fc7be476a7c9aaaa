package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/middleware"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/services"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

// ListProducts handles GET /api/products.
// Filters: category, brand, kosher_level, animal_type, name_like (or name)
// and, for admins, is_active.
func (h *Handlers) ListProducts(c *gin.Context) {
	// 1. --- Read the query ---
	p, err := page(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	q := query{c: c}
	filter := store.ProductFilter{
		Category:    q.str("category"),
		Brand:       q.str("brand"),
		AnimalType:  q.str("animal_type"),
		KosherLevel: q.str("kosher_level"),
		NameLike:    q.firstOf("name_like", "name"),
		IsActive:    q.boolean("is_active"),
		Page:        p,
		Sort:        sortParam(c, false),
	}
	if q.err != nil {
		_ = c.Error(q.err)
		return
	}

	// 2. --- Query ---
	products, info, err := h.Catalog.ListProducts(c.Request.Context(), middleware.CurrentIdentity(c), filter)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, listResponse[models.Product]{Data: products, PageInfo: info})
}

// GetProduct handles GET /api/products/:id. The payload includes the
// current min price and up to ten price examples.
func (h *Handlers) GetProduct(c *gin.Context) {
	id, err := pathID(c, "id", "product")
	if err != nil {
		_ = c.Error(err)
		return
	}
	product, err := h.Catalog.GetProduct(c.Request.Context(), middleware.CurrentIdentity(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handlers) CreateProduct(c *gin.Context) {
	var input services.ProductInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}
	product, err := h.Catalog.CreateProduct(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(c *gin.Context) {
	// 1. --- Get Product ID from URL ---
	id, err := pathID(c, "id", "product")
	if err != nil {
		_ = c.Error(err)
		return
	}

	// 2. --- Bind the partial update ---
	var patch services.ProductPatch
	if err := bindJSON(c, &patch); err != nil {
		_ = c.Error(err)
		return
	}

	// 3. --- Save ---
	product, err := h.Catalog.UpdateProduct(c.Request.Context(), id, patch)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(c *gin.Context) {
	id, err := pathID(c, "id", "product")
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.Catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}
