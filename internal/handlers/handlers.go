package handlers

import (
	"go.uber.org/zap"

	"github.com/01moynul/bashrometer-golang/internal/auth"
	"github.com/01moynul/bashrometer-golang/internal/config"
	"github.com/01moynul/bashrometer-golang/internal/services"
	"github.com/01moynul/bashrometer-golang/internal/store"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Prices  *services.PriceService
	Tokens  *auth.TokenManager // Also used by the auth middleware
}

// New wires the services on top of st.
func New(st store.Store, tokens *auth.TokenManager, cfg config.Config, log *zap.Logger) *Handlers {
	return &Handlers{
		Auth:    services.NewAuthService(st, tokens, cfg.AllowRoleSelfAssign),
		Catalog: services.NewCatalogService(st, st, st, log),
		Prices:  services.NewPriceService(st, cfg.StrictStatusTransitions, log),
		Tokens:  tokens,
	}
}
