package http

import (
	"arcade_webapp/internal/config"
	"arcade_webapp/internal/http/handlers"
	"arcade_webapp/internal/http/middleware"
	"arcade_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps is everything the routes need. Handler.Accounts and Handler.Settings
// stay nil when no database is configured.
type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Limiter *middleware.RateLimiter
	Tokens  *service.TokenIssuer
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, d Deps) {
	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	apiLimit := d.Limiter.Limit("api", cfg.APIRateLimit, cfg.APIRateWindow())
	authLimit := middleware.AuthRateLimit(d.Limiter, cfg.AuthRateLimit, cfg.AuthRateWindow(), "register", "login")

	// Root paths and the /api paths the web client calls
	for _, g := range []*gin.RouterGroup{&r.RouterGroup, r.Group("/api")} {
		api := g.Group("")
		api.Use(apiLimit, middleware.OptionalJWT(d.Tokens))
		registerAPIRoutes(api, d.Handler, authLimit)
	}

	// Live broadcast feed
	r.GET("/ws", middleware.OptionalJWT(d.Tokens), d.Handler.WS)
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, authLimit gin.HandlerFunc) {
	// Accounts
	api.GET("/accounts", h.GetAccounts)
	api.POST("/accounts", authLimit, h.PostAccounts)

	// Global settings
	api.GET("/global", h.GetGlobal)
	api.POST("/global", h.PostGlobal)
	api.GET("/global/withdrawals", h.ListWithdrawals)

	// Level scratchpad
	api.GET("/levels", h.GetLevels)
	api.POST("/levels", h.PostLevels)

	// Admin audit trail
	api.GET("/audit", h.ListAuditLogs)
}
