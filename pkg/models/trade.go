package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is BUY or SELL
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade is a fill as reported by the Data API. Price and size arrive either
// as numbers or as decimal strings; decimal.Decimal accepts both.
type Trade struct {
	ID              string          `json:"id,omitempty"`
	TransactionHash string          `json:"transactionHash,omitempty"`
	ConditionID     string          `json:"conditionId"`
	Asset           string          `json:"asset,omitempty"`
	Side            TradeSide       `json:"side"`
	Price           decimal.Decimal `json:"price"`
	Size            decimal.Decimal `json:"size"`
	MakerAddress    string          `json:"proxyWallet"`
	Timestamp       int64           `json:"timestamp"` // unix seconds
	Title           string          `json:"title,omitempty"`
	Slug            string          `json:"slug,omitempty"`
	EventSlug       string          `json:"eventSlug,omitempty"`
	Outcome         string          `json:"outcome,omitempty"`
	Name            string          `json:"name,omitempty"`
	Pseudonym       string          `json:"pseudonym,omitempty"`
}

// Value is the notional of the trade, price × size
func (t Trade) Value() decimal.Decimal {
	return t.Price.Mul(t.Size)
}

// Time returns the trade timestamp
func (t Trade) Time() time.Time {
	return time.Unix(t.Timestamp, 0)
}

// PricePoint is one sample of the CLOB price history
type PricePoint struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}
