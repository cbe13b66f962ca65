package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appinsight "github.com/salesiq/backend/internal/application/insight"
	"github.com/salesiq/backend/internal/infrastructure/config"
	"github.com/salesiq/backend/internal/infrastructure/logger"
	"github.com/salesiq/backend/internal/infrastructure/odoo"
	"github.com/salesiq/backend/internal/interfaces/http/handler"
	"github.com/salesiq/backend/internal/interfaces/http/middleware"
	"github.com/salesiq/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration. Missing Odoo connection parameters are fatal:
	// the server is useless without a backend to query.
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		zap.NewExample().Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", handler.ServiceVersion),
		zap.String("odoo_url", cfg.Odoo.URL),
		zap.String("odoo_db", cfg.Odoo.Database))

	client, err := odoo.NewClient(cfg.Odoo, log)
	if err != nil {
		log.Fatal("Failed to create Odoo client", zap.Error(err))
	}

	// Probe the backend once at startup. A failure is logged but not
	// fatal: the server starts anyway and reports the state via /health.
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), cfg.Odoo.Timeout)
	if uid, err := client.Ping(probeCtx); err != nil {
		log.Warn("Odoo authentication failed at startup, continuing unhealthy", zap.Error(err))
	} else {
		log.Info("Authenticated with Odoo", zap.Int64("uid", uid))
	}
	cancelProbe()

	source := odoo.NewSource(client, log)
	service := appinsight.NewService(source, log)

	engine := buildEngine(cfg, log)

	systemHandler := handler.NewSystemHandler(client, handler.BackendInfo{
		URL:      cfg.Odoo.URL,
		Database: cfg.Odoo.Database,
	})
	insightHandler := handler.NewInsightHandler(service)

	router.NewRouter(engine).
		Register(systemHandler).
		Register(insightHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildEngine assembles the gin engine with the middleware chain.
func buildEngine(cfg *config.Config, log *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	middleware.SetupValidator()

	// RequestID must run before the request logger: the logger reads the
	// id from the gin context and stamps it on every downstream log line.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	return engine
}
