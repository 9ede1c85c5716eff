package gamma

import (
	"context"

	"polymerit/pkg/models"
)

type priceHistoryResponse struct {
	History []models.PricePoint `json:"history"`
}

// FetchTrades lists recent trades for one market (condition id)
func (c *Client) FetchTrades(ctx context.Context, params TradeParams) ([]models.Trade, error) {
	var trades []models.Trade
	if err := c.getJSON(ctx, "trades", c.dataURL, "/trades", params.Values(), &trades); err != nil {
		return nil, err
	}
	return nonNil(trades), nil
}

// GetTrades lists recent trades, or returns an empty slice on failure
func (c *Client) GetTrades(ctx context.Context, params TradeParams) []models.Trade {
	trades, err := c.FetchTrades(ctx, params)
	if err != nil {
		c.logFailure("trades", err)
		return []models.Trade{}
	}
	return trades
}

// FetchGlobalActivity lists the most recent trades across all markets
func (c *Client) FetchGlobalActivity(ctx context.Context, params ActivityParams) ([]models.Trade, error) {
	var trades []models.Trade
	if err := c.getJSON(ctx, "activity", c.dataURL, "/trades", params.Values(), &trades); err != nil {
		return nil, err
	}
	return nonNil(trades), nil
}

// GetGlobalActivity lists recent trades across all markets, or an empty slice on failure
func (c *Client) GetGlobalActivity(ctx context.Context, params ActivityParams) []models.Trade {
	trades, err := c.FetchGlobalActivity(ctx, params)
	if err != nil {
		c.logFailure("activity", err)
		return []models.Trade{}
	}
	return trades
}

// FetchPriceHistory loads the CLOB price series for a token
func (c *Client) FetchPriceHistory(ctx context.Context, params PriceHistoryParams) ([]models.PricePoint, error) {
	var resp priceHistoryResponse
	if err := c.getJSON(ctx, "prices_history", c.clobURL, "/prices-history", params.Values(), &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.History), nil
}

// GetPriceHistory loads the price series, or returns an empty slice on failure
func (c *Client) GetPriceHistory(ctx context.Context, params PriceHistoryParams) []models.PricePoint {
	history, err := c.FetchPriceHistory(ctx, params)
	if err != nil {
		c.logFailure("prices_history", err)
		return []models.PricePoint{}
	}
	return history
}
