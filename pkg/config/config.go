package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Mail     MailConfig
	Upstream UpstreamConfig
	Watcher  WatcherConfig
}

type ServerConfig struct {
	Port           string
	Host           string
	PublicURL      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	Environment    string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string // postgres or memory
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxOpen  int
	MaxIdle  int
	MaxLife  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	Database int
	PoolSize int
}

type AuthConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	MagicLinkTTL  time.Duration
	CookieName    string
	CookieSecure  bool
	CookieDomain  string
	RedirectAfter string
}

type MailConfig struct {
	From     string
	SMTPHost string
	SMTPPort string
	Username string
	Password string
}

type UpstreamConfig struct {
	GammaURL     string
	DataURL      string
	ClobURL      string
	Timeout      time.Duration
	RatePerSec   float64
	Burst        int
	BuilderCode  string
	SiteURL      string
	WhaleMinSize float64
}

// WatcherConfig drives cmd/watcher, the terminal client.
type WatcherConfig struct {
	FeedInterval        time.Duration
	LeaderboardInterval time.Duration
	PrefsBackend        string // file or redis
	PrefsPath           string
	Notifications       string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Host:           getEnv("SERVER_HOST", "localhost"),
			PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:    getEnv("ENVIRONMENT", "development"),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "polymerit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxOpen:  getIntEnv("DB_MAX_OPEN", 25),
			MaxIdle:  getIntEnv("DB_MAX_IDLE", 5),
			MaxLife:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			Database: getIntEnv("REDIS_DATABASE", 0),
			PoolSize: getIntEnv("REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET_KEY", "polymerit-dev-secret"),
			SessionTTL:    getDurationEnv("SESSION_TTL", 30*24*time.Hour),
			MagicLinkTTL:  getDurationEnv("MAGIC_LINK_TTL", 15*time.Minute),
			CookieName:    getEnv("SESSION_COOKIE_NAME", "polymerit_session"),
			CookieSecure:  getBoolEnv("SESSION_COOKIE_SECURE", false),
			CookieDomain:  getEnv("SESSION_COOKIE_DOMAIN", ""),
			RedirectAfter: getEnv("AUTH_REDIRECT_URL", ""),
		},
		Mail: MailConfig{
			From:     getEnv("MAIL_FROM", "PolyMerit <login@polymerit.local>"),
			SMTPHost: getEnv("SMTP_HOST", ""),
			SMTPPort: getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
		},
		Upstream: UpstreamConfig{
			GammaURL:     getEnv("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
			DataURL:      getEnv("DATA_API_URL", "https://data-api.polymarket.com"),
			ClobURL:      getEnv("CLOB_API_URL", "https://clob.polymarket.com"),
			Timeout:      getDurationEnv("UPSTREAM_TIMEOUT", 10*time.Second),
			RatePerSec:   getFloatEnv("UPSTREAM_RATE_PER_SEC", 20),
			Burst:        getIntEnv("UPSTREAM_BURST", 40),
			BuilderCode:  getEnv("BUILDER_CODE", ""),
			SiteURL:      getEnv("POLYMARKET_SITE_URL", "https://polymarket.com"),
			WhaleMinSize: getFloatEnv("WHALE_MIN_SIZE", 1000),
		},
		Watcher: WatcherConfig{
			FeedInterval:        getDurationEnv("WATCHER_FEED_INTERVAL", 10*time.Second),
			LeaderboardInterval: getDurationEnv("WATCHER_LEADERBOARD_INTERVAL", 60*time.Second),
			PrefsBackend:        getEnv("WATCHER_PREFS_BACKEND", "file"),
			PrefsPath:           getEnv("WATCHER_PREFS_PATH", "polymerit-prefs.json"),
			Notifications:       getEnv("WATCHER_NOTIFICATIONS", "default"),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) GetDatabaseURL() string {
	return "postgres://" + c.Database.User + ":" + c.Database.Password + "@" + c.Database.Host + ":" + c.Database.Port + "/" + c.Database.DBName + "?sslmode=" + c.Database.SSLMode
}

func (c *Config) GetRedisURL() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
