// Package watcher polls the live trade feed and leaderboard on fixed
// intervals and feeds the results into the alert manager.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"polymerit/pkg/alerts"
	"polymerit/pkg/config"
	"polymerit/pkg/feed"
	"polymerit/pkg/gamma"
	"polymerit/pkg/insights"
	"polymerit/pkg/models"
)

const (
	feedLimit        = 100
	leaderboardLimit = 500
)

// Source is the upstream data the watcher reads
type Source interface {
	FetchGlobalActivity(ctx context.Context, params gamma.ActivityParams) ([]models.Trade, error)
	GetMarket(ctx context.Context, id string) *models.Market
}

// Watcher owns the pollers of one terminal session
type Watcher struct {
	source  Source
	manager *alerts.Manager
	minSize float64
	now     func() time.Time
	log     *logrus.Entry

	whales      *feed.Poller[[]models.Trade]
	prices      *feed.Poller[map[string]float64]
	leaderboard *feed.Poller[[]insights.TraderStats]
}

// New wires the pollers. minSize filters the live feed upstream.
func New(source Source, manager *alerts.Manager, cfg config.WatcherConfig, minSize float64) *Watcher {
	w := &Watcher{
		source:  source,
		manager: manager,
		minSize: minSize,
		now:     time.Now,
		log:     logrus.WithField("component", "watcher"),
	}

	w.whales = feed.NewPoller("whales", cfg.FeedInterval, w.fetchWhales, w.onWhales)
	w.prices = feed.NewPoller("prices", cfg.FeedInterval, w.fetchPrices, w.onPrices)
	w.leaderboard = feed.NewPoller("leaderboard", cfg.LeaderboardInterval, w.fetchLeaderboard, w.onLeaderboard)
	return w
}

// Run polls until ctx is done
func (w *Watcher) Run(ctx context.Context) error {
	permission, err := w.manager.RequestPermission(ctx)
	if err != nil {
		return fmt.Errorf("failed to request notification permission: %w", err)
	}
	w.log.WithField("permission", permission).Info("Watcher starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { w.whales.Run(gctx); return nil })
	g.Go(func() error { w.prices.Run(gctx); return nil })
	g.Go(func() error { w.leaderboard.Run(gctx); return nil })
	return g.Wait()
}

// Leaderboard returns the most recently accepted ranking
func (w *Watcher) Leaderboard() ([]insights.TraderStats, bool) {
	return w.leaderboard.Tracker().Latest()
}

func (w *Watcher) fetchWhales(ctx context.Context) ([]models.Trade, error) {
	params := gamma.ActivityParams{Limit: gamma.Int(feedLimit)}
	if w.minSize > 0 {
		params.MinSize = gamma.Float(w.minSize)
	}
	return w.source.FetchGlobalActivity(ctx, params)
}

func (w *Watcher) onWhales(trades []models.Trade) {
	fired, err := w.manager.CheckWhaleTrades(context.Background(), trades)
	if err != nil {
		w.log.WithError(err).Error("Failed to record whale alerts")
		return
	}
	if len(fired) > 0 {
		w.log.WithField("count", len(fired)).Info("Whale alerts fired")
	}
}

// fetchPrices loads the YES price of every market with an active alert.
// Markets that cannot be loaded are left out of the round.
func (w *Watcher) fetchPrices(ctx context.Context) (map[string]float64, error) {
	priceAlerts, err := w.manager.PriceAlerts(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)
	for _, pa := range priceAlerts {
		if !pa.Active {
			continue
		}
		if _, done := prices[pa.MarketID]; done {
			continue
		}
		market := w.source.GetMarket(ctx, pa.MarketID)
		if market == nil {
			continue
		}
		prices[pa.MarketID] = insights.YesProbability(market.OutcomePrices)
	}
	return prices, nil
}

func (w *Watcher) onPrices(prices map[string]float64) {
	if len(prices) == 0 {
		return
	}
	fired, err := w.manager.CheckPrices(context.Background(), prices)
	if err != nil {
		w.log.WithError(err).Error("Failed to record price alerts")
		return
	}
	if len(fired) > 0 {
		w.log.WithField("count", len(fired)).Info("Price alerts fired")
	}
}

func (w *Watcher) fetchLeaderboard(ctx context.Context) ([]insights.TraderStats, error) {
	trades, err := w.source.FetchGlobalActivity(ctx, gamma.ActivityParams{Limit: gamma.Int(leaderboardLimit)})
	if err != nil {
		return nil, err
	}
	return insights.AnalyzeTraderPerformance(trades, w.now()), nil
}

func (w *Watcher) onLeaderboard(ranked []insights.TraderStats) {
	for i, trader := range ranked {
		volume, _ := trader.TotalVolume.Float64()
		w.log.WithFields(logrus.Fields{
			"rank":    i + 1,
			"address": trader.Address,
			"trades":  trader.TradeCount,
			"recent":  trader.RecentActivity,
		}).Infof("%s $%s", displayName(trader), humanize.CommafWithDigits(volume, 2))
	}
}

func displayName(trader insights.TraderStats) string {
	if trader.Name != "" {
		return trader.Name
	}
	return trader.Address
}
