package policy

import (
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/internal/handlers"
	"github.com/diewo77/dealership-api/internal/services"
	"github.com/diewo77/dealership-api/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// profileCacheTTL bounds how long a role change takes to apply.
const profileCacheTTL = 5 * time.Minute

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// AuthGate provides authorization checks and middleware
	AuthGate *AuthGate
	// Tokens issues and verifies bearer tokens
	Tokens *auth.Tokens

	AuthHandler    *handlers.AuthHandler
	ClientHandler  *handlers.ClientHandler
	VehicleHandler *handlers.VehicleHandler
	SaleHandler    *handlers.SaleHandler
	UserHandler    *handlers.UserHandler
}

// NewRouterConfig wires the store, the sale service, the handlers and the
// authorization gate on top of one database connection.
func NewRouterConfig(db *gorm.DB, tokens *auth.Tokens, log *zap.Logger) *RouterConfig {
	if log == nil {
		log = zap.NewNop()
	}
	saleService := services.NewSaleService(store.NewGorm(db), log)
	authGate := NewAuthGate(db, profileCacheTTL, log)

	return &RouterConfig{
		AuthGate:       authGate,
		Tokens:         tokens,
		AuthHandler:    handlers.NewAuthHandler(db, tokens, log),
		ClientHandler:  handlers.NewClientHandler(db, log),
		VehicleHandler: handlers.NewVehicleHandler(db, log),
		SaleHandler:    handlers.NewSaleHandler(saleService, log),
		UserHandler:    handlers.NewUserHandler(db, authGate.CacheResolver, log),
	}
}
