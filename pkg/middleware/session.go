package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"polymerit/pkg/config"
)

// CookieSettings controls the session cookie
type CookieSettings struct {
	Name   string
	Domain string
	Secure bool
}

// CookieSettingsFromConfig builds cookie settings from auth config
func CookieSettingsFromConfig(cfg config.AuthConfig) CookieSettings {
	return CookieSettings{Name: cfg.CookieName, Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}
}

// SessionToken returns the session token from the cookie or, failing that,
// from an Authorization: Bearer header
func SessionToken(c *gin.Context, cookieName string) string {
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SetSessionCookie writes an HttpOnly session cookie expiring at expiresAt
func SetSessionCookie(c *gin.Context, s CookieSettings, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, token, maxAge, "/", s.Domain, s.Secure, true)
}

// ClearSessionCookie expires the session cookie
func ClearSessionCookie(c *gin.Context, s CookieSettings) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, "", -1, "/", s.Domain, s.Secure, true)
}
