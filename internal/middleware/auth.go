// Package middleware holds the gin middleware shared by every route: the
// access control gate, request ids, request logging, CORS and the top-level
// error handler.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/models"
)

// Context keys set by Authenticate and OptionalAuth.
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
	identityKey = "identity"
)

const (
	msgNoToken      = "Access denied. No token provided."
	msgTokenExpired = "Token expired. Please log in again."
	msgInvalidToken = "Access denied. Invalid token."
	msgWrongRole    = "Forbidden: You do not have the required role for this action."
)

// Authenticate requires a valid bearer token and stores the caller's
// identity on the context.
func Authenticate(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, msgNoToken)
			return
		}
		verify(c, tm, header)
	}
}

// OptionalAuth lets anonymous requests through. A request that does carry
// an Authorization header must carry a valid token.
func OptionalAuth(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		verify(c, tm, header)
	}
}

func verify(c *gin.Context, tm *auth.TokenManager, header string) {
	// 1. --- Extract the bearer token ---
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		abort(c, http.StatusUnauthorized, msgNoToken)
		return
	}

	// 2. --- Validate ---
	claims, err := tm.Parse(token)
	if errors.Is(err, auth.ErrTokenExpired) {
		abort(c, http.StatusUnauthorized, msgTokenExpired)
		return
	}
	if err != nil {
		abort(c, http.StatusForbidden, msgInvalidToken)
		return
	}

	// 3. --- Success ---
	identity := claims.Identity()
	c.Set(UserIDKey, identity.UserID)
	c.Set(UserRoleKey, identity.Role)
	c.Set(identityKey, &identity)
	c.Next()
}

// AuthorizeRole must run after Authenticate. It rejects callers whose role
// is not one of roles.
func AuthorizeRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := CurrentIdentity(c)
		if identity == nil {
			abort(c, http.StatusUnauthorized, msgNoToken)
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, msgWrongRole)
	}
}

// CurrentIdentity returns the authenticated caller, or nil for anonymous
// requests.
func CurrentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*models.Identity)
	return identity
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
