package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/auth"
	"polymerit/pkg/middleware"
)

const magicLinkSentMessage = "If that address is valid, a sign-in link is on its way"

// AuthHandlers contains the magic-link sign-in handlers
type AuthHandlers struct {
	service       *auth.Service
	cookie        middleware.CookieSettings
	redirectAfter string
}

// NewAuthHandlers creates new authentication handlers. A non-empty
// redirectAfter sends the browser there after a successful verify.
func NewAuthHandlers(service *auth.Service, cookie middleware.CookieSettings, redirectAfter string) *AuthHandlers {
	return &AuthHandlers{
		service:       service,
		cookie:        cookie,
		redirectAfter: redirectAfter,
	}
}

func clientInfo(c *gin.Context) auth.ClientInfo {
	return auth.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// RequestMagicLink mails a single-use sign-in link
func (ah *AuthHandlers) RequestMagicLink(c *gin.Context) {
	var req MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if errs := ValidateMagicLinkRequest(req); len(errs) > 0 {
		SendValidationErrors(c, errs)
		return
	}

	err := ah.service.RequestMagicLink(c.Request.Context(), req.Email, clientInfo(c))
	switch {
	case err == nil, errors.Is(err, auth.ErrUserDisabled):
		// Disabled accounts get the same answer so addresses cannot be probed
	default:
		logrus.WithError(err).Error("Failed to issue magic link")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send sign-in link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": magicLinkSentMessage,
	})
}

// Verify consumes a magic link and opens a session
func (ah *AuthHandlers) Verify(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter token is required"})
		return
	}

	session, err := ah.service.Verify(c.Request.Context(), token, clientInfo(c))
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidLink):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired sign-in link"})
		return
	case errors.Is(err, auth.ErrUserDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": "User account is disabled"})
		return
	default:
		logrus.WithError(err).Error("Failed to verify magic link")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign in"})
		return
	}

	middleware.SetSessionCookie(c, ah.cookie, session.Token, session.ExpiresAt)

	if ah.redirectAfter != "" {
		c.Redirect(http.StatusFound, ah.redirectAfter)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user":       session.User,
		"token":      session.Token,
		"expires_at": session.ExpiresAt,
	})
}

// Logout ends the current session
func (ah *AuthHandlers) Logout(c *gin.Context) {
	token := middleware.SessionToken(c, ah.cookie.Name)
	if err := ah.service.Logout(c.Request.Context(), token); err != nil {
		logrus.WithError(err).Error("Failed to invalidate session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	middleware.ClearSessionCookie(c, ah.cookie)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetSession returns the signed-in user
func (ah *AuthHandlers) GetSession(c *gin.Context) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}
