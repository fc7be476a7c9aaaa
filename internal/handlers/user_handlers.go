package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/middleware"
	"github.com/01moynul/bashrometer-golang/internal/models"
	"github.com/01moynul/bashrometer-golang/internal/services"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authResponse is returned by register and login. The password hash never
// leaves the server thanks to the json:"-" tag on models.User.
type authResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
	Token   string       `json:"token"`
}

// --- User Registration ---

func (h *Handlers) Register(c *gin.Context) {
	// 1. --- Bind JSON ---
	var input services.RegisterInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}

	// 2. --- Create the account ---
	res, err := h.Auth.Register(c.Request.Context(), input)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// 3. --- Send Success Response ---
	c.JSON(http.StatusCreated, authResponse{
		Message: "User registered successfully.",
		User:    res.User,
		Token:   res.Token,
	})
}

// --- User Login ---

func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := bindJSON(c, &input); err != nil {
		_ = c.Error(err)
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		Message: "Login successful.",
		User:    res.User,
		Token:   res.Token,
	})
}

// Me returns the caller's profile as currently stored.
func (h *Handlers) Me(c *gin.Context) {
	user, err := h.Auth.Me(c.Request.Context(), middleware.CurrentIdentity(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}
