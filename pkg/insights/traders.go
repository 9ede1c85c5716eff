package insights

import (
	"strings"
	"time"

	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"

	"polymerit/pkg/models"
)

const (
	minTradesForRanking = 5
	leaderboardSize     = 10
	recentWindow        = time.Hour
)

// TraderStats aggregates the activity of one maker address
type TraderStats struct {
	Address        string          `json:"address"`
	Name           string          `json:"name,omitempty"`
	TradeCount     int             `json:"tradeCount"`
	BuyCount       int             `json:"buyCount"`
	SellCount      int             `json:"sellCount"`
	TotalVolume    decimal.Decimal `json:"totalVolume"`
	AvgTradeSize   decimal.Decimal `json:"avgTradeSize"`
	RecentActivity int             `json:"recentActivity"`
	LastTradeAt    time.Time       `json:"lastTradeAt"`
}

// rankKey orders traders by volume descending, then address ascending
type rankKey struct {
	volume  decimal.Decimal
	address string
}

var byVolumeDesc = skiplist.GreaterThanFunc(func(lhs, rhs interface{}) int {
	l, r := lhs.(rankKey), rhs.(rankKey)
	if c := r.volume.Cmp(l.volume); c != 0 {
		return c
	}
	return strings.Compare(l.address, r.address)
})

// AnalyzeTraderPerformance groups trades by maker address and returns the top
// traders by notional volume. Addresses with fewer than five trades are
// dropped. now anchors the one-hour recent-activity window.
func AnalyzeTraderPerformance(trades []models.Trade, now time.Time) []TraderStats {
	byAddress := make(map[string]*TraderStats)
	recentCutoff := now.Add(-recentWindow)

	for _, trade := range trades {
		address := strings.ToLower(strings.TrimSpace(trade.MakerAddress))
		if address == "" {
			continue
		}

		stats, ok := byAddress[address]
		if !ok {
			stats = &TraderStats{Address: address, TotalVolume: decimal.Zero}
			byAddress[address] = stats
		}

		stats.TradeCount++
		switch models.TradeSide(strings.ToUpper(string(trade.Side))) {
		case models.SideBuy:
			stats.BuyCount++
		case models.SideSell:
			stats.SellCount++
		}
		stats.TotalVolume = stats.TotalVolume.Add(trade.Value())

		at := trade.Time()
		if !at.Before(recentCutoff) && !at.After(now) {
			stats.RecentActivity++
		}
		if at.After(stats.LastTradeAt) {
			stats.LastTradeAt = at
		}
		if stats.Name == "" {
			stats.Name = displayName(trade)
		}
	}

	ranking := skiplist.New(byVolumeDesc)
	for _, stats := range byAddress {
		if stats.TradeCount < minTradesForRanking {
			continue
		}
		stats.AvgTradeSize = stats.TotalVolume.Div(decimal.NewFromInt(int64(stats.TradeCount)))
		ranking.Set(rankKey{volume: stats.TotalVolume, address: stats.Address}, stats)
	}

	top := make([]TraderStats, 0, leaderboardSize)
	for elem := ranking.Front(); elem != nil && len(top) < leaderboardSize; elem = elem.Next() {
		top = append(top, *elem.Value.(*TraderStats))
	}
	return top
}

func displayName(trade models.Trade) string {
	if trade.Name != "" {
		return trade.Name
	}
	return trade.Pseudonym
}
