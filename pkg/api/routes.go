package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/auth"
	"polymerit/pkg/cache"
	"polymerit/pkg/config"
	"polymerit/pkg/metrics"
	"polymerit/pkg/middleware"
	"polymerit/pkg/repository"
)

// HealthCheck probes one backing service
type HealthCheck func(ctx context.Context) error

// Dependencies are the services the routes are wired to
type Dependencies struct {
	Config   *config.Config
	Upstream Upstream
	Store    repository.Store
	Auth     *auth.Service
	// Cache is optional; rate limiting falls back to Store without it
	Cache  *cache.RedisCache
	Checks map[string]HealthCheck
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth, cfg.Auth.CookieName)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(deps.Cache, deps.Store)

	marketHandlers := NewMarketHandlers(deps.Upstream, cfg.Upstream)
	watchlistHandlers := NewWatchlistHandlers(deps.Store)
	authHandlers := NewAuthHandlers(
		deps.Auth,
		middleware.CookieSettingsFromConfig(cfg.Auth),
		cfg.Auth.RedirectAfter,
	)

	router.Use(middleware.RequestID())
	router.Use(metrics.GinMiddleware())

	router.GET("/health", healthHandler(deps.Checks))
	router.GET("/metrics", metrics.Handler())

	setupSwagger(router)

	api := router.Group("/api")
	api.Use(rateLimitMiddleware.RateLimit(middleware.PublicRateLimit))
	{
		api.GET("/events", marketHandlers.GetEvents)
		api.GET("/markets", marketHandlers.GetMarkets)
		api.GET("/market/:id", marketHandlers.GetMarket)
		api.GET("/markets/:conditionId/prices", marketHandlers.GetPriceHistory)
		api.GET("/markets/:conditionId/trades", marketHandlers.GetTrades)
		api.GET("/search", marketHandlers.Search)
		api.GET("/tags", marketHandlers.GetTags)
		api.GET("/whales", marketHandlers.GetWhales)
		api.GET("/insights/:id", marketHandlers.GetInsights)
		api.GET("/leaderboard", marketHandlers.GetLeaderboard)

		authGroup := api.Group("/auth")
		{
			authGroup.POST("/magic-link", rateLimitMiddleware.RateLimit(middleware.MagicLinkRateLimit), authHandlers.RequestMagicLink)
			authGroup.GET("/verify", authHandlers.Verify)
			authGroup.POST("/logout", authMiddleware.OptionalSession(), authHandlers.Logout)
			authGroup.GET("/session", authMiddleware.RequireSession(), authHandlers.GetSession)
		}

		watchlist := api.Group("/watchlist")
		watchlist.Use(authMiddleware.RequireSession())
		watchlist.Use(rateLimitMiddleware.RateLimit(middleware.UserRateLimit))
		{
			watchlist.GET("", watchlistHandlers.List)
			watchlist.POST("", watchlistHandlers.Add)
			watchlist.DELETE("", watchlistHandlers.Remove)
		}
	}
}

// healthHandler reports each backing service. Any failure turns the answer
// into a 503.
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				logrus.WithError(err).WithField("component", name).Warn("Health check failed")
				components[name] = "unhealthy"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "healthy"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":     overall,
			"service":    "polymerit",
			"version":    SwaggerInfo.Version,
			"components": components,
		})
	}
}
