package gamma

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"polymerit/pkg/models"
)

// FetchMarkets lists markets verbatim
func (c *Client) FetchMarkets(ctx context.Context, params MarketParams) ([]json.RawMessage, error) {
	var markets []json.RawMessage
	if err := c.getJSON(ctx, "markets", c.gammaURL, "/markets", params.Values(), &markets); err != nil {
		return nil, err
	}
	return nonNil(markets), nil
}

// GetMarkets lists markets, or returns an empty slice on failure
func (c *Client) GetMarkets(ctx context.Context, params MarketParams) []json.RawMessage {
	markets, err := c.FetchMarkets(ctx, params)
	if err != nil {
		c.logFailure("markets", err)
		return []json.RawMessage{}
	}
	return markets
}

// FetchMarket loads a single market by Gamma id. Missing markets yield ErrNotFound.
func (c *Client) FetchMarket(ctx context.Context, id string) (*models.Market, error) {
	var market models.Market
	if err := c.getJSON(ctx, "market", c.gammaURL, "/markets/"+url.PathEscape(id), nil, &market); err != nil {
		return nil, err
	}
	if market.ID == "" && market.ConditionID == "" {
		return nil, ErrNotFound
	}
	return &market, nil
}

// GetMarket loads a single market, or returns nil on failure
func (c *Client) GetMarket(ctx context.Context, id string) *models.Market {
	market, err := c.FetchMarket(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.log.WithField("market_id", id).Debug("market not found upstream")
			return nil
		}
		c.logFailure("market", err)
		return nil
	}
	return market
}

// FetchEvents lists events (each with nested markets) verbatim
func (c *Client) FetchEvents(ctx context.Context, params EventParams) ([]json.RawMessage, error) {
	var events []json.RawMessage
	if err := c.getJSON(ctx, "events", c.gammaURL, "/events", params.Values(), &events); err != nil {
		return nil, err
	}
	return nonNil(events), nil
}

// GetEvents lists events, or returns an empty slice on failure
func (c *Client) GetEvents(ctx context.Context, params EventParams) []json.RawMessage {
	events, err := c.FetchEvents(ctx, params)
	if err != nil {
		c.logFailure("events", err)
		return []json.RawMessage{}
	}
	return events
}

// FetchTags lists tags verbatim
func (c *Client) FetchTags(ctx context.Context) ([]json.RawMessage, error) {
	var tags []json.RawMessage
	if err := c.getJSON(ctx, "tags", c.gammaURL, "/tags", nil, &tags); err != nil {
		return nil, err
	}
	return nonNil(tags), nil
}

// GetTags lists tags, or returns an empty slice on failure
func (c *Client) GetTags(ctx context.Context) []json.RawMessage {
	tags, err := c.FetchTags(ctx)
	if err != nil {
		c.logFailure("tags", err)
		return []json.RawMessage{}
	}
	return tags
}

// FetchSearch runs a public search and returns the upstream object verbatim
func (c *Client) FetchSearch(ctx context.Context, params SearchParams) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.getJSON(ctx, "search", c.gammaURL, "/public-search", params.Values(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Search runs a public search, or returns nil on failure
func (c *Client) Search(ctx context.Context, params SearchParams) json.RawMessage {
	result, err := c.FetchSearch(ctx, params)
	if err != nil {
		c.logFailure("search", err)
		return nil
	}
	return result
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
