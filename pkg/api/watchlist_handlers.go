package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"polymerit/pkg/middleware"
	"polymerit/pkg/models"
	"polymerit/pkg/repository"
)

// WatchlistHandlers serve the signed-in user's watchlist
type WatchlistHandlers struct {
	repo repository.WatchlistRepository
}

// NewWatchlistHandlers creates the watchlist handlers
func NewWatchlistHandlers(repo repository.WatchlistRepository) *WatchlistHandlers {
	return &WatchlistHandlers{repo: repo}
}

// List returns the user's watchlist, newest first
func (h *WatchlistHandlers) List(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	items, err := h.repo.ListWatchlist(c.Request.Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Add inserts a market or refreshes its slug and title
func (h *WatchlistHandlers) Add(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req WatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	req.MarketID = strings.TrimSpace(req.MarketID)
	req.Slug = strings.TrimSpace(req.Slug)

	if errs := ValidateWatchlistRequest(req); len(errs) > 0 {
		SendValidationErrors(c, errs)
		return
	}

	item := &models.WatchlistItem{
		UserID:   userID,
		MarketID: req.MarketID,
		Slug:     req.Slug,
		Title:    req.Title,
	}
	if err := h.repo.UpsertWatchlistItem(c.Request.Context(), item); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to save watchlist item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save watchlist item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// Remove deletes the market named by ?marketId=
func (h *WatchlistHandlers) Remove(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	marketID := strings.TrimSpace(c.Query("marketId"))
	if marketID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter marketId is required"})
		return
	}

	removed, err := h.repo.DeleteWatchlistItem(c.Request.Context(), userID, marketID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to delete watchlist item")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete watchlist item"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist item not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
