package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arcade_webapp/internal/cache"
	"arcade_webapp/internal/config"
	"arcade_webapp/internal/db"
	httpServer "arcade_webapp/internal/http"
	"arcade_webapp/internal/http/handlers"
	"arcade_webapp/internal/http/middleware"
	"arcade_webapp/internal/logger"
	"arcade_webapp/internal/repository"
	"arcade_webapp/internal/service"
	"arcade_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "error", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON, "version", cfg.AppVersion)

	ctx := context.Background()

	if cfg.DatabaseURL != "" && cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal("migrate", "error", err)
		}
	}

	dbPool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", "error", err)
	}
	if dbPool != nil {
		defer dbPool.Close()
	}

	// Redis is optional: without it the limiter and levels stay in process
	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, continuing without it", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	hub := ws.NewHub()
	defer hub.Close()

	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)

	h := &handlers.Handler{
		Levels:        service.NewMemoryLevelStore(),
		Hub:           hub,
		AllowedOrigin: cfg.AllowedOrigin,
	}
	if rdb != nil {
		h.Levels = service.NewRedisLevelStore(rdb, service.DefaultLevelsKey)
	}
	if dbPool != nil {
		audit := service.NewAuditService(repository.NewAuditRepository(dbPool))
		settings := service.NewSettingsService(
			repository.NewSettingsRepository(dbPool),
			repository.NewWithdrawalRepository(dbPool),
			hub,
			audit,
		)
		h.Audit = audit
		h.Settings = settings
		h.Accounts = service.NewAccountService(
			repository.NewAccountRepository(dbPool),
			tokens,
			service.WithAudit(audit),
			service.WithPromoCatalog(settings),
			service.WithAdminTokenRequired(cfg.RequireAdminToken),
		)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestContext(), middleware.Metrics(), middleware.CORS(cfg.AllowedOrigin))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, cfg, httpServer.Deps{
		Handler: h,
		Health:  handlers.NewHealthHandler(dbPool, rdb, cfg.AppVersion),
		Limiter: middleware.NewRateLimiter(rdb),
		Tokens:  tokens,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
