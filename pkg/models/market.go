package models

import (
	"encoding/json"
)

// Market is a Gamma market snapshot. Gamma encodes several array fields
// (outcomePrices, outcomes, clobTokenIds) as JSON strings, so they are kept
// raw and decoded on demand.
type Market struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	ConditionID   string          `json:"conditionId"`
	Slug          string          `json:"slug"`
	Category      string          `json:"category,omitempty"`
	Description   string          `json:"description,omitempty"`
	Image         string          `json:"image,omitempty"`
	Volume        Float           `json:"volume"`
	Volume24hr    Float           `json:"volume24hr"`
	Liquidity     Float           `json:"liquidity"`
	OutcomePrices json.RawMessage `json:"outcomePrices,omitempty"`
	Outcomes      json.RawMessage `json:"outcomes,omitempty"`
	ClobTokenIDs  json.RawMessage `json:"clobTokenIds,omitempty"`
	Active        bool            `json:"active"`
	Closed        bool            `json:"closed"`
	Archived      bool            `json:"archived"`
	StartDate     string          `json:"startDate,omitempty"`
	EndDate       string          `json:"endDate,omitempty"`
}

// TokenIDs returns the CLOB token ids, YES first. Malformed input yields nil.
func (m *Market) TokenIDs() []string {
	return DecodeStringList(m.ClobTokenIDs)
}

// DecodeStringList decodes a JSON array of strings that may itself be wrapped
// in a JSON string.
func DecodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}
