package gamma

import (
	"net/url"
	"strconv"
)

// Int returns a pointer to v, for optional parameter fields
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for optional parameter fields
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v, for optional parameter fields
func Float(v float64) *float64 { return &v }

// query accumulates only the parameters that were supplied
type query struct {
	values url.Values
}

func newQuery() *query {
	return &query{values: url.Values{}}
}

func (q *query) setString(key, v string) {
	if v != "" {
		q.values.Set(key, v)
	}
}

func (q *query) setInt(key string, v *int) {
	if v != nil {
		q.values.Set(key, strconv.Itoa(*v))
	}
}

func (q *query) setBool(key string, v *bool) {
	if v != nil {
		q.values.Set(key, strconv.FormatBool(*v))
	}
}

func (q *query) setFloat(key string, v *float64) {
	if v != nil {
		q.values.Set(key, strconv.FormatFloat(*v, 'f', -1, 64))
	}
}

func (q *query) encode() url.Values {
	return q.values
}

// MarketParams filters Gamma /markets
type MarketParams struct {
	Limit        *int
	Offset       *int
	Order        string
	Ascending    *bool
	Active       *bool
	Closed       *bool
	Archived     *bool
	TagID        string
	Category     string
	Slug         string
	// ConditionIDs restricts the listing to the given CTF condition ids
	ConditionIDs []string
}

// Values encodes the supplied fields
func (p MarketParams) Values() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.setString("order", p.Order)
	q.setBool("ascending", p.Ascending)
	q.setBool("active", p.Active)
	q.setBool("closed", p.Closed)
	q.setBool("archived", p.Archived)
	q.setString("tag_id", p.TagID)
	q.setString("category", p.Category)
	q.setString("slug", p.Slug)
	for _, id := range p.ConditionIDs {
		q.values.Add("condition_ids", id)
	}
	return q.encode()
}

// EventParams filters Gamma /events
type EventParams struct {
	Limit     *int
	Offset    *int
	Order     string
	Ascending *bool
	Active    *bool
	Closed    *bool
	TagID     string
	Slug      string
}

// Values encodes the supplied fields
func (p EventParams) Values() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.setString("order", p.Order)
	q.setBool("ascending", p.Ascending)
	q.setBool("active", p.Active)
	q.setBool("closed", p.Closed)
	q.setString("tag_id", p.TagID)
	q.setString("slug", p.Slug)
	return q.encode()
}

// SearchParams drives Gamma /public-search
type SearchParams struct {
	Query string
	Limit *int
	Page  *int
}

// Values encodes the supplied fields
func (p SearchParams) Values() url.Values {
	q := newQuery()
	q.setString("q", p.Query)
	q.setInt("limit_per_type", p.Limit)
	q.setInt("page", p.Page)
	return q.encode()
}

// TradeParams filters Data API /trades for one market
type TradeParams struct {
	Market    string
	Limit     *int
	Offset    *int
	TakerOnly *bool
}

// Values encodes the supplied fields
func (p TradeParams) Values() url.Values {
	q := newQuery()
	q.setString("market", p.Market)
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	q.setBool("takerOnly", p.TakerOnly)
	return q.encode()
}

// ActivityParams filters the global trade feed. MinSize is a cash amount.
type ActivityParams struct {
	Limit   *int
	Offset  *int
	MinSize *float64
}

// Values encodes the supplied fields
func (p ActivityParams) Values() url.Values {
	q := newQuery()
	q.setInt("limit", p.Limit)
	q.setInt("offset", p.Offset)
	if p.MinSize != nil {
		q.setString("filterType", "CASH")
		q.setFloat("filterAmount", p.MinSize)
	}
	return q.encode()
}

// PriceHistoryParams drives CLOB /prices-history. Interval is forwarded as given.
type PriceHistoryParams struct {
	Market   string
	Interval string
	Fidelity *int
}

// Values encodes the supplied fields
func (p PriceHistoryParams) Values() url.Values {
	q := newQuery()
	q.setString("market", p.Market)
	q.setString("interval", p.Interval)
	q.setInt("fidelity", p.Fidelity)
	return q.encode()
}
