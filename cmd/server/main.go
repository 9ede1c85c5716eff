package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/api"
	"polymerit/pkg/auth"
	"polymerit/pkg/cache"
	"polymerit/pkg/config"
	"polymerit/pkg/database"
	"polymerit/pkg/gamma"
	"polymerit/pkg/repository"
)

const sessionCleanupInterval = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	logrus.Info("Starting PolyMerit API...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]api.HealthCheck{}

	// Persistence
	var store repository.Store
	switch cfg.Database.Driver {
	case "memory":
		logrus.Warn("Using in-memory storage; users and watchlists are lost on restart")
		store = repository.NewMemoryStore()
	default:
		if err := database.Initialize(cfg); err != nil {
			logrus.Fatalf("Failed to initialize database: %v", err)
		}
		defer database.Close()

		if err := database.AutoMigrate(); err != nil {
			logrus.Fatalf("Failed to run database migrations: %v", err)
		}
		store = repository.NewGormStore(database.GetDB())
		checks["database"] = database.HealthCheck
	}

	// Redis is optional; rate limiting falls back to the database without it
	redisCache, err := cache.New(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
		checks["redis"] = redisCache.HealthCheck
	}

	upstream := gamma.NewClient(gamma.OptionsFromConfig(cfg.Upstream))

	authService := auth.NewService(
		store,
		auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL),
		auth.NewMailer(cfg.Mail),
		cfg.Server.PublicURL,
		cfg.Auth.MagicLinkTTL,
	)
	go cleanupSessions(ctx, authService)

	// Setup HTTP server
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	api.SetupRoutes(router, api.Dependencies{
		Config:   cfg,
		Upstream: upstream,
		Store:    store,
		Auth:     authService,
		Cache:    redisCache,
		Checks:   checks,
	})

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logrus.Infof("PolyMerit API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down PolyMerit API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("PolyMerit API stopped")
}

func corsConfig(cfg *config.Config) cors.Config {
	corsConfig := cors.DefaultConfig()
	if cfg.IsDevelopment() || len(cfg.Server.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Length",
		"Content-Type",
		"Authorization",
	}
	corsConfig.ExposeHeaders = []string{
		"X-RateLimit-Limit",
		"X-RateLimit-Remaining",
		"Retry-After",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// cleanupSessions prunes expired sessions until ctx is done
func cleanupSessions(ctx context.Context, service *auth.Service) {
	ticker := time.NewTicker(sessionCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := service.CleanupExpiredSessions(ctx)
			if err != nil {
				logrus.WithError(err).Warn("Session cleanup failed")
				continue
			}
			if removed > 0 {
				logrus.WithField("removed", removed).Info("Expired sessions removed")
			}
		}
	}
}

func setupLogging(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging initialized")
}
