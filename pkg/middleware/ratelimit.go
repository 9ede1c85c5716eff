package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/cache"
	"polymerit/pkg/repository"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests   int
	Window     time.Duration
	KeyFunc    func(c *gin.Context) string
	Message    string
	StatusCode int
}

func clientIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

var (
	// PublicRateLimit covers the read-only proxy endpoints
	PublicRateLimit = RateLimitConfig{
		Requests:   300,
		Window:     time.Minute,
		KeyFunc:    clientIP,
		Message:    "Too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}

	// MagicLinkRateLimit keeps the sign-in endpoint from being used to spam inboxes
	MagicLinkRateLimit = RateLimitConfig{
		Requests:   5,
		Window:     15 * time.Minute,
		KeyFunc:    func(c *gin.Context) string { return "magic:" + c.ClientIP() },
		Message:    "Too many sign-in requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}

	// UserRateLimit applies per signed-in user on watchlist writes
	UserRateLimit = RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		KeyFunc: func(c *gin.Context) string {
			if userID, ok := GetUserIDFromContext(c); ok {
				return fmt.Sprintf("user:%d", userID)
			}
			return clientIP(c)
		},
		Message:    "Rate limit exceeded",
		StatusCode: http.StatusTooManyRequests,
	}
)

// RateLimitMiddleware counts requests in Redis and falls back to the store
type RateLimitMiddleware struct {
	cache *cache.RedisCache
	store repository.RateLimitStore
}

// NewRateLimitMiddleware creates a new rate limiting middleware. Either
// backend may be nil.
func NewRateLimitMiddleware(c *cache.RedisCache, store repository.RateLimitStore) *RateLimitMiddleware {
	return &RateLimitMiddleware{cache: c, store: store}
}

// RateLimit creates a rate limiting middleware with the given configuration
func (rl *RateLimitMiddleware) RateLimit(config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		count, reset, err := rl.hit(c, key, config.Window)
		if err != nil {
			// fail open
			logrus.WithError(err).WithField("key", key).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		remaining := config.Requests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > config.Requests {
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			c.JSON(config.StatusCode, gin.H{"error": config.Message})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimitMiddleware) hit(c *gin.Context, key string, window time.Duration) (int, time.Duration, error) {
	ctx := c.Request.Context()

	if rl.cache != nil {
		count, ttl, err := rl.cache.IncrementWindow(ctx, fmt.Sprintf(cache.KeyRateLimit, key), window)
		if err == nil {
			return int(count), ttl, nil
		}
		logrus.WithError(err).Debug("Redis rate limit failed, using fallback")
	}

	if rl.store == nil {
		return 0, 0, fmt.Errorf("no rate limit backend configured")
	}
	count, err := rl.store.HitRateLimit(ctx, key, window, time.Now())
	if err != nil {
		return 0, 0, err
	}
	return count, window, nil
}
