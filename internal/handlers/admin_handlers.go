package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/services"
)

// CreateUser provisions an account with an explicit role (admin only).
// Unlike registration it does not sign the new user in.
func (h *Handlers) CreateUser(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input services.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}

	// 2. --- Create ---
	user, err := h.Auth.CreateUser(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully.",
		"user":    user,
	})
}
