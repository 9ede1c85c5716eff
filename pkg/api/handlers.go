package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"polymerit/pkg/config"
	"polymerit/pkg/gamma"
	"polymerit/pkg/insights"
	"polymerit/pkg/metrics"
	"polymerit/pkg/middleware"
	"polymerit/pkg/models"
)

const (
	defaultMarketLimit   = 50
	defaultTradeLimit    = 50
	defaultWhaleLimit    = 50
	marketDetailTrades   = 20
	leaderboardSample    = 500
	maxPageLimit         = 500
	marketDetailInterval = "1d"
)

// Upstream is the subset of the Polymarket client used by the handlers
type Upstream interface {
	FetchEvents(ctx context.Context, params gamma.EventParams) ([]json.RawMessage, error)
	FetchMarkets(ctx context.Context, params gamma.MarketParams) ([]json.RawMessage, error)
	FetchMarket(ctx context.Context, id string) (*models.Market, error)
	FetchTags(ctx context.Context) ([]json.RawMessage, error)
	FetchSearch(ctx context.Context, params gamma.SearchParams) (json.RawMessage, error)
	FetchTrades(ctx context.Context, params gamma.TradeParams) ([]models.Trade, error)
	FetchGlobalActivity(ctx context.Context, params gamma.ActivityParams) ([]models.Trade, error)
	FetchPriceHistory(ctx context.Context, params gamma.PriceHistoryParams) ([]models.PricePoint, error)
}

// MarketHandlers proxy the read-only market endpoints
type MarketHandlers struct {
	upstream Upstream
	cfg      config.UpstreamConfig
	now      func() time.Time
}

// NewMarketHandlers creates the market handlers
func NewMarketHandlers(upstream Upstream, cfg config.UpstreamConfig) *MarketHandlers {
	return &MarketHandlers{
		upstream: upstream,
		cfg:      cfg,
		now:      time.Now,
	}
}

// upstreamFailure maps an upstream error to a response
func upstreamFailure(c *gin.Context, what string, err error) {
	if errors.Is(err, gamma.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": strings.ToUpper(what[:1]) + what[1:] + " not found"})
		return
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"path":       c.FullPath(),
		"request_id": middleware.GetRequestID(c),
	}).Error("Upstream request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + what})
}

// GetEvents lists events
func (h *MarketHandlers) GetEvents(c *gin.Context) {
	v := NewValidator()
	params := gamma.EventParams{
		Limit:     v.QueryInt(c, "limit", maxPageLimit),
		Offset:    v.QueryOffset(c, "offset"),
		Order:     c.Query("order"),
		Ascending: v.QueryBool(c, "ascending"),
		Active:    v.QueryBool(c, "active"),
		TagID:     c.Query("tag_id"),
	}
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}

	events, err := h.upstream.FetchEvents(c.Request.Context(), params)
	if err != nil {
		upstreamFailure(c, "events", err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// GetMarkets lists markets, by volume descending unless told otherwise
func (h *MarketHandlers) GetMarkets(c *gin.Context) {
	v := NewValidator()
	limit := v.QueryInt(c, "limit", maxPageLimit)
	if limit == nil {
		limit = gamma.Int(defaultMarketLimit)
	}

	order := strings.ToLower(c.DefaultQuery("order", "desc"))
	if order != "asc" && order != "desc" {
		v.AddError("order", "order must be asc or desc")
	}
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}

	params := gamma.MarketParams{
		Limit:     limit,
		Order:     c.DefaultQuery("sort", "volume"),
		Ascending: gamma.Bool(order == "asc"),
		Active:    gamma.Bool(true),
		Closed:    gamma.Bool(false),
	}

	markets, err := h.upstream.FetchMarkets(c.Request.Context(), params)
	if err != nil {
		upstreamFailure(c, "markets", err)
		return
	}
	c.JSON(http.StatusOK, markets)
}

// MarketDetail is the body of GET /api/market/:id
type MarketDetail struct {
	Market       *models.Market      `json:"market"`
	PriceHistory []models.PricePoint `json:"priceHistory"`
	Trades       []models.Trade      `json:"trades"`
	URL          string              `json:"url"`
}

// GetMarket returns a market with its recent price history and trades
func (h *MarketHandlers) GetMarket(c *gin.Context) {
	ctx := c.Request.Context()

	market, err := h.upstream.FetchMarket(ctx, c.Param("id"))
	if err != nil {
		upstreamFailure(c, "market", err)
		return
	}

	detail := MarketDetail{
		Market:       market,
		PriceHistory: []models.PricePoint{},
		Trades:       []models.Trade{},
		URL:          gamma.MarketURL(h.cfg.SiteURL, market.Slug, h.cfg.BuilderCode),
	}

	g, gctx := errgroup.WithContext(ctx)
	if ids := market.TokenIDs(); len(ids) > 0 {
		g.Go(func() error {
			history, err := h.upstream.FetchPriceHistory(gctx, gamma.PriceHistoryParams{
				Market:   ids[0],
				Interval: marketDetailInterval,
			})
			if err != nil {
				return err
			}
			detail.PriceHistory = history
			return nil
		})
	}
	if market.ConditionID != "" {
		g.Go(func() error {
			trades, err := h.upstream.FetchTrades(gctx, gamma.TradeParams{
				Market: market.ConditionID,
				Limit:  gamma.Int(marketDetailTrades),
			})
			if err != nil {
				return err
			}
			detail.Trades = trades
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		upstreamFailure(c, "market", err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// GetPriceHistory returns the price series of a market's YES token. The path
// takes either a condition id, resolved through Gamma, or a CLOB token id.
func (h *MarketHandlers) GetPriceHistory(c *gin.Context) {
	ctx := c.Request.Context()
	interval := c.DefaultQuery("interval", marketDetailInterval)

	v := NewValidator()
	v.ValidateInterval("interval", interval)
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}

	tokenID := c.Param("conditionId")
	if gamma.IsConditionID(tokenID) {
		resolved, err := h.yesToken(ctx, tokenID)
		if err != nil {
			upstreamFailure(c, "market", err)
			return
		}
		if resolved == "" {
			c.JSON(http.StatusOK, []models.PricePoint{})
			return
		}
		tokenID = resolved
	}

	history, err := h.upstream.FetchPriceHistory(ctx, gamma.PriceHistoryParams{
		Market:   tokenID,
		Interval: interval,
	})
	if err != nil {
		upstreamFailure(c, "price history", err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// yesToken looks up the first CLOB token of the market with conditionID. An
// empty result means the market has no tokens.
func (h *MarketHandlers) yesToken(ctx context.Context, conditionID string) (string, error) {
	markets, err := h.upstream.FetchMarkets(ctx, gamma.MarketParams{
		Limit:        gamma.Int(1),
		ConditionIDs: []string{conditionID},
	})
	if err != nil {
		return "", err
	}
	if len(markets) == 0 {
		return "", gamma.ErrNotFound
	}

	var market models.Market
	if err := json.Unmarshal(markets[0], &market); err != nil {
		return "", fmt.Errorf("failed to decode market %s: %w", conditionID, err)
	}
	if ids := market.TokenIDs(); len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}

// GetTrades returns recent trades for a market
func (h *MarketHandlers) GetTrades(c *gin.Context) {
	v := NewValidator()
	limit := v.QueryInt(c, "limit", maxPageLimit)
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}
	if limit == nil {
		limit = gamma.Int(defaultTradeLimit)
	}

	trades, err := h.upstream.FetchTrades(c.Request.Context(), gamma.TradeParams{
		Market: c.Param("conditionId"),
		Limit:  limit,
	})
	if err != nil {
		upstreamFailure(c, "trades", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// Search proxies the public search
func (h *MarketHandlers) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}

	v := NewValidator()
	params := gamma.SearchParams{
		Query: q,
		Limit: v.QueryInt(c, "limit", maxPageLimit),
		Page:  v.QueryInt(c, "page", 1000),
	}
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}

	result, err := h.upstream.FetchSearch(c.Request.Context(), params)
	if err != nil {
		upstreamFailure(c, "search results", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetTags lists tags
func (h *MarketHandlers) GetTags(c *gin.Context) {
	tags, err := h.upstream.FetchTags(c.Request.Context())
	if err != nil {
		upstreamFailure(c, "tags", err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

// GetWhales returns the global activity feed filtered to large trades
func (h *MarketHandlers) GetWhales(c *gin.Context) {
	v := NewValidator()
	limit := v.QueryInt(c, "limit", maxPageLimit)
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}
	if limit == nil {
		limit = gamma.Int(defaultWhaleLimit)
	}

	params := gamma.ActivityParams{Limit: limit}
	if h.cfg.WhaleMinSize > 0 {
		params.MinSize = gamma.Float(h.cfg.WhaleMinSize)
	}

	trades, err := h.upstream.FetchGlobalActivity(c.Request.Context(), params)
	if err != nil {
		upstreamFailure(c, "whale activity", err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// GetInsights scores a market from its snapshot and recent trades
func (h *MarketHandlers) GetInsights(c *gin.Context) {
	ctx := c.Request.Context()

	market, err := h.upstream.FetchMarket(ctx, c.Param("id"))
	if err != nil {
		upstreamFailure(c, "market", err)
		return
	}

	var trades []models.Trade
	if market.ConditionID != "" {
		trades, err = h.upstream.FetchTrades(ctx, gamma.TradeParams{
			Market: market.ConditionID,
			Limit:  gamma.Int(defaultTradeLimit),
		})
		if err != nil {
			upstreamFailure(c, "trades", err)
			return
		}
	}

	report := insights.Analyze(*market, trades)
	metrics.RecordInsight(string(report.Sentiment))
	c.JSON(http.StatusOK, report)
}

// GetLeaderboard ranks the most active traders in the recent activity feed
func (h *MarketHandlers) GetLeaderboard(c *gin.Context) {
	v := NewValidator()
	limit := v.QueryInt(c, "limit", maxPageLimit)
	if v.HasErrors() {
		SendValidationErrors(c, v.GetErrors())
		return
	}

	trades, err := h.upstream.FetchGlobalActivity(c.Request.Context(), gamma.ActivityParams{
		Limit: gamma.Int(leaderboardSample),
	})
	if err != nil {
		upstreamFailure(c, "leaderboard", err)
		return
	}

	ranked := insights.AnalyzeTraderPerformance(trades, h.now())
	if limit != nil && *limit < len(ranked) {
		ranked = ranked[:*limit]
	}
	c.JSON(http.StatusOK, ranked)
}
