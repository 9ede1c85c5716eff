package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polymerit/pkg/auth"
	"polymerit/pkg/config"
	"polymerit/pkg/gamma"
	"polymerit/pkg/insights"
	"polymerit/pkg/models"
	"polymerit/pkg/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubUpstream records the parameters it was called with and serves canned data
type stubUpstream struct {
	mu sync.Mutex

	market   *models.Market
	markets  []json.RawMessage
	trades   []models.Trade
	activity []models.Trade
	history  []models.PricePoint
	err      error

	marketParams   gamma.MarketParams
	historyParams  gamma.PriceHistoryParams
	tradeParams    gamma.TradeParams
	activityParams gamma.ActivityParams
	searchParams   gamma.SearchParams
}

func (s *stubUpstream) FetchEvents(context.Context, gamma.EventParams) ([]json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []json.RawMessage{json.RawMessage(`{"id":"e1","markets":[]}`)}, nil
}

func (s *stubUpstream) FetchMarkets(_ context.Context, params gamma.MarketParams) ([]json.RawMessage, error) {
	s.mu.Lock()
	s.marketParams = params
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.markets != nil {
		return s.markets, nil
	}
	return []json.RawMessage{json.RawMessage(`{"id":"m1","volume":"1"}`)}, nil
}

func (s *stubUpstream) FetchMarket(_ context.Context, id string) (*models.Market, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.market == nil || s.market.ID != id {
		return nil, gamma.ErrNotFound
	}
	m := *s.market
	return &m, nil
}

func (s *stubUpstream) FetchTags(context.Context) ([]json.RawMessage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []json.RawMessage{}, nil
}

func (s *stubUpstream) FetchSearch(_ context.Context, params gamma.SearchParams) (json.RawMessage, error) {
	s.mu.Lock()
	s.searchParams = params
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return json.RawMessage(`{"markets":[],"tags":[]}`), nil
}

func (s *stubUpstream) FetchTrades(_ context.Context, params gamma.TradeParams) ([]models.Trade, error) {
	s.mu.Lock()
	s.tradeParams = params
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.trades, nil
}

func (s *stubUpstream) FetchGlobalActivity(_ context.Context, params gamma.ActivityParams) ([]models.Trade, error) {
	s.mu.Lock()
	s.activityParams = params
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.activity, nil
}

func (s *stubUpstream) FetchPriceHistory(_ context.Context, params gamma.PriceHistoryParams) ([]models.PricePoint, error) {
	s.mu.Lock()
	s.historyParams = params
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.history, nil
}

type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *captureMailer) SendMagicLink(_ context.Context, email, link string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[email] = link
	return nil
}

func (m *captureMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	require.True(t, ok, "no link sent to %s", email)
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryStore
	mailer *captureMailer
	up     *stubUpstream
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PublicURL: "http://localhost:8080"},
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			SessionTTL:   time.Hour,
			MagicLinkTTL: 15 * time.Minute,
			CookieName:   "polymerit_session",
		},
		Upstream: config.UpstreamConfig{
			SiteURL:      "https://polymarket.com",
			BuilderCode:  "merit",
			WhaleMinSize: 1000,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}

	store := repository.NewMemoryStore()
	mailer := &captureMailer{}
	up := &stubUpstream{}
	service := auth.NewService(store, auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL), mailer, cfg.Server.PublicURL, cfg.Auth.MagicLinkTTL)

	router := gin.New()
	SetupRoutes(router, Dependencies{
		Config:   cfg,
		Upstream: up,
		Store:    store,
		Auth:     service,
		Checks: map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
		},
	})
	return &testServer{router: router, store: store, mailer: mailer, up: up}
}

func (ts *testServer) do(method, target string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "polymerit_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// signIn runs the full magic-link flow and returns the session cookie
func (ts *testServer) signIn(t *testing.T, email string) *http.Cookie {
	t.Helper()
	w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": email})
	require.Equal(t, http.StatusOK, w.Code)

	token := ts.mailer.token(t, email)
	w = ts.do(http.MethodGet, "/api/auth/verify?token="+url.QueryEscape(token), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return sessionCookie(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest), w.Body.String())
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, map[string]interface{}{"database": "healthy"}, body["components"])
}

func TestHealthDegraded(t *testing.T) {
	router := gin.New()
	router.GET("/health", healthHandler(map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unhealthy"`)
}

func TestSearchRequiresQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/search?q=%20%20", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/search?q=election&limit=5", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"markets":[],"tags":[]}`, w.Body.String())
	assert.Equal(t, "election", ts.up.searchParams.Query)
	require.NotNil(t, ts.up.searchParams.Limit)
	assert.Equal(t, 5, *ts.up.searchParams.Limit)
	assert.Nil(t, ts.up.searchParams.Page)
}

func TestMarketsDefaultToVolumeDescending(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/markets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"id":"m1","volume":"1"}]`, w.Body.String())

	params := ts.up.marketParams
	assert.Equal(t, "volume", params.Order)
	require.NotNil(t, params.Ascending)
	assert.False(t, *params.Ascending)
	require.NotNil(t, params.Limit)
	assert.Equal(t, defaultMarketLimit, *params.Limit)

	w = ts.do(http.MethodGet, "/api/markets?sort=liquidity&order=asc&limit=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "liquidity", ts.up.marketParams.Order)
	assert.True(t, *ts.up.marketParams.Ascending)
	assert.Equal(t, 3, *ts.up.marketParams.Limit)
}

func TestMarketsRejectBadParams(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/markets?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed")

	w = ts.do(http.MethodGet, "/api/markets?order=sideways", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpstreamFailureIs500(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.err = &gamma.StatusError{Endpoint: "markets", StatusCode: http.StatusBadGateway}

	for _, path := range []string{"/api/markets", "/api/events", "/api/tags", "/api/whales", "/api/leaderboard"} {
		w := ts.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, w.Body.String(), "Failed to fetch", path)
	}
}

func testMarket() *models.Market {
	return &models.Market{
		ID:            "123",
		Question:      "Will it rain?",
		ConditionID:   "0xcond",
		Slug:          "will-it-rain",
		Volume:        600000,
		Volume24hr:    200000,
		OutcomePrices: json.RawMessage(`"[\"0.8\",\"0.2\"]"`),
		ClobTokenIDs:  json.RawMessage(`"[\"tok-yes\",\"tok-no\"]"`),
	}
}

func TestMarketDetail(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.market = testMarket()
	ts.up.history = []models.PricePoint{{T: 1, P: 0.5}, {T: 2, P: 0.55}}
	ts.up.trades = []models.Trade{{ConditionID: "0xcond", Side: models.SideBuy, Price: decimal.RequireFromString("0.5"), Size: decimal.NewFromInt(10)}}

	w := ts.do(http.MethodGet, "/api/market/123", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var detail MarketDetail
	decode(t, w, &detail)
	assert.Equal(t, "123", detail.Market.ID)
	assert.Len(t, detail.PriceHistory, 2)
	assert.Len(t, detail.Trades, 1)
	assert.Equal(t, "https://polymarket.com/event/will-it-rain?via=merit", detail.URL)

	assert.Equal(t, "tok-yes", ts.up.historyParams.Market)
	assert.Equal(t, "1d", ts.up.historyParams.Interval)
	assert.Equal(t, "0xcond", ts.up.tradeParams.Market)
	assert.Equal(t, marketDetailTrades, *ts.up.tradeParams.Limit)
}

func TestMarketDetailNotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/market/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Market not found"}`, w.Body.String())
}

func TestMarketDetailWithoutTokensSkipsHistory(t *testing.T) {
	ts := newTestServer(t, nil)
	m := testMarket()
	m.ClobTokenIDs = nil
	ts.up.market = m

	w := ts.do(http.MethodGet, "/api/market/123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"priceHistory":[]`)
	assert.Empty(t, ts.up.historyParams.Market)
}

func TestPriceHistoryInterval(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.history = []models.PricePoint{}

	for _, interval := range PriceIntervals {
		w := ts.do(http.MethodGet, "/api/markets/tok-yes/prices?interval="+interval, nil)
		assert.Equal(t, http.StatusOK, w.Code, interval)
		assert.Equal(t, interval, ts.up.historyParams.Interval)
	}

	w := ts.do(http.MethodGet, "/api/markets/tok-yes/prices?interval=6h", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "interval")
}

func TestPriceHistoryResolvesConditionID(t *testing.T) {
	conditionID := "0x" + strings.Repeat("c1", 32)

	ts := newTestServer(t, nil)
	ts.up.history = []models.PricePoint{{T: 1, P: 0.4}}
	ts.up.markets = []json.RawMessage{json.RawMessage(`{"id":"m1","clobTokenIds":"[\"tok-yes\",\"tok-no\"]"}`)}

	w := ts.do(http.MethodGet, "/api/markets/"+conditionID+"/prices?interval=1w", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok-yes", ts.up.historyParams.Market)
	assert.Equal(t, "1w", ts.up.historyParams.Interval)
	assert.Equal(t, []string{conditionID}, ts.up.marketParams.ConditionIDs)

	ts.up.historyParams = gamma.PriceHistoryParams{}
	ts.up.markets = []json.RawMessage{json.RawMessage(`{"id":"m1"}`)}
	w = ts.do(http.MethodGet, "/api/markets/"+conditionID+"/prices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
	assert.Empty(t, ts.up.historyParams.Market, "no token, no history request")

	ts.up.markets = []json.RawMessage{}
	w = ts.do(http.MethodGet, "/api/markets/"+conditionID+"/prices", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Market not found"}`, w.Body.String())
}

func TestTradesLimit(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.trades = []models.Trade{}

	w := ts.do(http.MethodGet, "/api/markets/0xcond/trades?limit=7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
	assert.Equal(t, "0xcond", ts.up.tradeParams.Market)
	assert.Equal(t, 7, *ts.up.tradeParams.Limit)

	w = ts.do(http.MethodGet, "/api/markets/0xcond/trades?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWhalesApplyMinimumSize(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.activity = []models.Trade{}

	w := ts.do(http.MethodGet, "/api/whales?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, ts.up.activityParams.MinSize)
	assert.Equal(t, 1000.0, *ts.up.activityParams.MinSize)
	assert.Equal(t, 10, *ts.up.activityParams.Limit)
}

func TestInsights(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.up.market = testMarket()
	ts.up.trades = []models.Trade{}

	w := ts.do(http.MethodGet, "/api/insights/123", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report insights.Report
	decode(t, w, &report)
	assert.Equal(t, "123", report.MarketID)
	assert.Equal(t, insights.Bullish, report.Sentiment)
	assert.Empty(t, report.Anomalies)

	w = ts.do(http.MethodGet, "/api/insights/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t, nil)
	now := time.Now()

	var activity []models.Trade
	for _, maker := range []string{"0xaaa", "0xbbb"} {
		size := int64(10)
		if maker == "0xbbb" {
			size = 20
		}
		for i := 0; i < 5; i++ {
			activity = append(activity, models.Trade{
				MakerAddress: maker,
				Side:         models.SideBuy,
				Price:        decimal.RequireFromString("0.5"),
				Size:         decimal.NewFromInt(size),
				Timestamp:    now.Add(-time.Minute).Unix(),
			})
		}
	}
	ts.up.activity = activity

	w := ts.do(http.MethodGet, "/api/leaderboard", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ranked []insights.TraderStats
	decode(t, w, &ranked)
	require.Len(t, ranked, 2)
	assert.Equal(t, "0xbbb", ranked[0].Address)
	assert.Equal(t, 5, ranked[0].RecentActivity)

	w = ts.do(http.MethodGet, "/api/leaderboard?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &ranked)
	assert.Len(t, ranked, 1)
}

func TestMagicLinkValidation(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error   string           `json:"error"`
		Details ValidationErrors `json:"details"`
	}
	decode(t, w, &body)
	assert.Equal(t, "Validation failed", body.Error)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "email", body.Details[0].Field)
}

func TestMagicLinkFlow(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": "Trader@Example.com "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), magicLinkSentMessage)

	token := ts.mailer.token(t, "trader@example.com")
	w = ts.do(http.MethodGet, "/api/auth/verify?token="+url.QueryEscape(token), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)

	// Links are single use
	w = ts.do(http.MethodGet, "/api/auth/verify?token="+url.QueryEscape(token), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/auth/session", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "trader@example.com")

	w = ts.do(http.MethodPost, "/api/auth/logout", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/auth/session", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVerifyRejectsUnknownToken(t *testing.T) {
	ts := newTestServer(t, nil)

	w := ts.do(http.MethodGet, "/api/auth/verify?token=bogus", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/auth/verify", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyRedirects(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RedirectAfter = "http://localhost:3000/"
	ts := newTestServer(t, cfg)

	w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": "a@example.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/auth/verify?token="+url.QueryEscape(ts.mailer.token(t, "a@example.com")), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://localhost:3000/", w.Header().Get("Location"))
	sessionCookie(t, w)
}

func TestMagicLinkIsRateLimited(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 0; i < 5; i++ {
		w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": "spam@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := ts.do(http.MethodPost, "/api/auth/magic-link", gin.H{"email": "spam@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestWatchlistRequiresSession(t *testing.T) {
	ts := newTestServer(t, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete} {
		w := ts.do(method, "/api/watchlist", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, method)
	}
}

func TestWatchlistCRUD(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.signIn(t, "watcher@example.com")

	w := ts.do(http.MethodGet, "/api/watchlist", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = ts.do(http.MethodPost, "/api/watchlist", gin.H{"marketId": "123", "slug": "will-it-rain", "title": "Rain"}, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Upsert keyed on (user, market) refreshes the title
	w = ts.do(http.MethodPost, "/api/watchlist", gin.H{"marketId": "123", "slug": "will-it-rain", "title": "Rain tomorrow"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.WatchlistItem
	w = ts.do(http.MethodGet, "/api/watchlist", nil, cookie)
	decode(t, w, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Rain tomorrow", items[0].Title)

	w = ts.do(http.MethodDelete, "/api/watchlist?marketId=123", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodDelete, "/api/watchlist?marketId=123", nil, cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodDelete, "/api/watchlist", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatchlistIsolatedPerUser(t *testing.T) {
	ts := newTestServer(t, nil)
	alice := ts.signIn(t, "alice@example.com")
	bob := ts.signIn(t, "bob@example.com")

	w := ts.do(http.MethodPost, "/api/watchlist", gin.H{"marketId": "1", "slug": "one"}, alice)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/watchlist", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestWatchlistPostRequiresFields(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie := ts.signIn(t, "fields@example.com")

	w := ts.do(http.MethodPost, "/api/watchlist", gin.H{"title": "no ids"}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Details ValidationErrors `json:"details"`
	}
	decode(t, w, &body)
	fields := make([]string, 0, len(body.Details))
	for _, d := range body.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"marketId", "slug"}, fields)

	req := httptest.NewRequest(http.MethodPost, "/api/watchlist", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOpenAPIServedAsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swagger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openapi: 3.0.0\ninfo:\n  title: PolyMerit API\npaths:\n  /api/tags:\n    get:\n      responses:\n        \"200\":\n          description: ok\n"), 0o600))

	prev := SpecPath
	SpecPath = path
	t.Cleanup(func() { SpecPath = prev })

	ts := newTestServer(t, nil)
	w := ts.do(http.MethodGet, "/api/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var spec map[string]interface{}
	decode(t, w, &spec)
	assert.Equal(t, "3.0.0", spec["openapi"])
	info := spec["info"].(map[string]interface{})
	assert.Equal(t, "PolyMerit API", info["title"])

	w = ts.do(http.MethodGet, "/api/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
