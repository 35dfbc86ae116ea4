package main

import (
	"net/http"

	"github.com/diewo77/dealership-api/gate"
	"github.com/diewo77/dealership-api/httpx"
	"github.com/diewo77/dealership-api/internal/middleware"
	"github.com/diewo77/dealership-api/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	handler   http.Handler
	db        *gorm.DB
	routerCfg *policy.RouterConfig
	log       *zap.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *policy.RouterConfig, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		log:       log,
	}
	app.setupRoutes()
	app.handler = middleware.Recover(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.Lang(app.mux))))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) requireAuth(next http.Handler) http.Handler {
	return a.routerCfg.Tokens.RequireAuth(a.routerCfg.AuthHandler.UserExists)(next)
}

// protected chains authentication and a permission check.
func (a *App) protected(resource string, action gate.Action, h http.HandlerFunc) http.Handler {
	return a.requireAuth(a.routerCfg.AuthGate.RequirePermission(resource, action)(h))
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// public
	ah := a.routerCfg.AuthHandler
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.HandleFunc("POST /users/signup", ah.Signup)
	a.mux.HandleFunc("POST /users/login", ah.Login)

	// authenticated
	a.mux.Handle("GET /users/me", a.requireAuth(http.HandlerFunc(ah.Me)))

	uh := a.routerCfg.UserHandler
	a.mux.Handle("GET /users", a.protected(policy.ResourceUser, gate.ActionList, uh.List))
	a.mux.Handle("GET /users/{id}", a.protected(policy.ResourceUser, gate.ActionView, uh.Get))
	a.mux.Handle("PUT /users/{id}", a.protected(policy.ResourceUser, gate.ActionUpdate, uh.Update))
	a.mux.Handle("DELETE /users/{id}", a.protected(policy.ResourceUser, gate.ActionDelete, uh.Delete))

	ch := a.routerCfg.ClientHandler
	a.mux.Handle("GET /clients", a.protected(policy.ResourceClient, gate.ActionList, ch.List))
	a.mux.Handle("POST /clients", a.protected(policy.ResourceClient, gate.ActionCreate, ch.Create))
	a.mux.Handle("GET /clients/{id}", a.protected(policy.ResourceClient, gate.ActionView, ch.Get))
	a.mux.Handle("PUT /clients/{id}", a.protected(policy.ResourceClient, gate.ActionUpdate, ch.Update))
	a.mux.Handle("DELETE /clients/{id}", a.protected(policy.ResourceClient, gate.ActionDelete, ch.Delete))

	vh := a.routerCfg.VehicleHandler
	a.mux.Handle("GET /vehicles", a.protected(policy.ResourceVehicle, gate.ActionList, vh.List))
	a.mux.Handle("POST /vehicles", a.protected(policy.ResourceVehicle, gate.ActionCreate, vh.Create))
	a.mux.Handle("GET /vehicles/{id}", a.protected(policy.ResourceVehicle, gate.ActionView, vh.Get))
	a.mux.Handle("PUT /vehicles/{id}", a.protected(policy.ResourceVehicle, gate.ActionUpdate, vh.Update))
	a.mux.Handle("DELETE /vehicles/{id}", a.protected(policy.ResourceVehicle, gate.ActionDelete, vh.Delete))

	sh := a.routerCfg.SaleHandler
	a.mux.Handle("GET /sales", a.protected(policy.ResourceSale, gate.ActionList, sh.List))
	a.mux.Handle("POST /sales", a.protected(policy.ResourceSale, gate.ActionCreate, sh.Create))
	a.mux.Handle("GET /sales/{id}", a.protected(policy.ResourceSale, gate.ActionView, sh.Get))
	a.mux.Handle("PUT /sales/{id}", a.protected(policy.ResourceSale, gate.ActionUpdate, sh.Amend))
	a.mux.Handle("DELETE /sales/{id}", a.protected(policy.ResourceSale, gate.ActionDelete, sh.Delete))
	a.mux.Handle("PATCH /sales/{id}/conclude", a.protected(policy.ResourceSale, gate.ActionConclude, sh.Conclude))
	a.mux.Handle("PATCH /sales/{id}/cancel", a.protected(policy.ResourceSale, gate.ActionCancel, sh.Cancel))
	a.mux.Handle("POST /sales/{id}/payments", a.protected(policy.ResourceSale, gate.ActionPay, sh.AddPayment))
}

// health reports liveness and whether the database answers.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
