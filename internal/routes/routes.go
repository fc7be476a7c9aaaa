package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/config"
	"github.com/01moynul/bashrometer-golang/internal/handlers"
	"github.com/01moynul/bashrometer-golang/internal/middleware"
	"github.com/01moynul/bashrometer-golang/internal/models"
)

func SetupRouter(h *handlers.Handlers, cfg config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// --- Global middleware ---
	// ErrorHandler sits innermost so the request log sees the final status.
	router.Use(
		middleware.RequestID(),
		middleware.RequestLog(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.ErrorHandler(log, cfg.Debug()),
	)

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Bashrometer API is running!")
	})
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found."})
	})

	authenticate := middleware.Authenticate(h.Tokens)
	optional := middleware.OptionalAuth(h.Tokens)
	adminOnly := middleware.AuthorizeRole(models.RoleAdmin)

	api := router.Group("/api")
	{
		// --- Ping Route (Public) ---
		api.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes ---
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/auth/me", authenticate, h.Me)

		// --- Product Routes ---
		products := api.Group("/products")
		{
			products.GET("", optional, h.ListProducts)
			products.GET("/:id", optional, h.GetProduct)
			products.POST("", authenticate, adminOnly, h.CreateProduct)
			products.PUT("/:id", authenticate, adminOnly, h.UpdateProduct)
			products.DELETE("/:id", authenticate, adminOnly, h.DeleteProduct)
		}

		// --- Retailer Routes ---
		retailers := api.Group("/retailers")
		{
			retailers.GET("", optional, h.ListRetailers)
			retailers.GET("/:id", optional, h.GetRetailer)
			retailers.POST("", authenticate, adminOnly, h.CreateRetailer)
			retailers.PUT("/:id", authenticate, adminOnly, h.UpdateRetailer)
			retailers.DELETE("/:id", authenticate, adminOnly, h.DeleteRetailer)
		}

		// --- Price Report Routes ---
		prices := api.Group("/prices")
		{
			prices.GET("", optional, h.ListPrices)
			prices.GET("/:id", optional, h.GetPrice)
			prices.POST("", authenticate, h.CreatePrice)
			prices.PUT("/:id", authenticate, h.UpdatePrice)
			prices.DELETE("/:id", authenticate, h.DeletePrice)

			prices.POST("/:id/like", authenticate, h.LikePrice)
			prices.DELETE("/:id/like", authenticate, h.UnlikePrice)
			prices.PUT("/:id/status", authenticate, adminOnly, h.UpdatePriceStatus)
		}

		// --- Admin-Only Routes ---
		admin := api.Group("/admin")
		admin.Use(authenticate, adminOnly)
		{
			admin.POST("/users", h.CreateUser)
		}
	}

	return router
}
