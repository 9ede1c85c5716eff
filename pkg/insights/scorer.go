// Package insights turns a market snapshot and its recent trades into a
// deterministic sentiment report, and ranks traders by notional volume.
// Every threshold is a fixed constant; nothing here is configurable.
package insights

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"polymerit/pkg/models"
)

// Sentiment classes
type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

// Signal strengths and impacts
const (
	StrengthStrong   = "strong"
	StrengthModerate = "moderate"

	ImpactPositive = "positive"
	ImpactNegative = "negative"
	ImpactNeutral  = "neutral"
)

// Signal types
const (
	SignalVolumeSpike       = "volume_spike"
	SignalPriceMomentum     = "price_momentum"
	SignalWhaleAccumulation = "whale_accumulation"
	SignalSmartMoney        = "smart_money"
)

// Anomaly types and severities
const (
	AnomalyUnusualVolume = "unusual_volume"
	AnomalySuddenShift   = "sudden_shift"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// Volume trends and momentum directions
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	DirectionUp       = "up"
	DirectionDown     = "down"
	DirectionSideways = "sideways"

	VolatilityHigh   = "high"
	VolatilityMedium = "medium"
	VolatilityLow    = "low"
)

const (
	bullishAbove = 0.65
	bearishBelow = 0.35

	trendBand        = 10.0
	volumeSpikeAt    = 50.0
	volumeSpikeHard  = 100.0
	unusualVolumeAt  = 200.0
	momentumAt       = 0.2
	momentumHard     = 0.3
	whaleTradeSize   = 10000
	whaleMinTrades   = 3
	whaleDominance   = 1.5
	smartMoneyVolume = 500000.0
	smartMoneyHigh   = 0.75
	smartMoneyLow    = 0.25
	shiftHigh        = 0.85
	shiftLow         = 0.15
	shiftExtremeHigh = 0.9
	shiftExtremeLow  = 0.1

	supportBand = 0.15

	confidenceFloor     = 0.1
	confidenceCeiling   = 0.95
	volumeConfidenceCap = 0.5
	volumeConfidenceDiv = 2000000.0
)

var whaleSize = decimal.NewFromInt(whaleTradeSize)

// Signal is one independently triggered observation
type Signal struct {
	Type        string `json:"type"`
	Strength    string `json:"strength"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// Anomaly flags an outlier in the snapshot
type Anomaly struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// VolumeTrend summarizes total volume against the last 24h
type VolumeTrend struct {
	Change         float64 `json:"change"`
	Trend          string  `json:"trend"`
	Interpretation string  `json:"interpretation"`
}

// PriceMomentum summarizes where the YES price sits
type PriceMomentum struct {
	Direction  string  `json:"direction"`
	Momentum   float64 `json:"momentum"`
	Volatility string  `json:"volatility"`
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// Report is recomputed on every call; it has no identity of its own
type Report struct {
	MarketID      string        `json:"marketId"`
	Sentiment     Sentiment     `json:"sentiment"`
	Score         float64       `json:"score"`
	Confidence    float64       `json:"confidence"`
	Prediction    string        `json:"prediction"`
	Probability   float64       `json:"probability"`
	Signals       []Signal      `json:"signals"`
	VolumeTrend   VolumeTrend   `json:"volumeTrend"`
	PriceMomentum PriceMomentum `json:"priceMomentum"`
	Anomalies     []Anomaly     `json:"anomalies"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

// Analyze scores a market. trades may be nil.
func Analyze(market models.Market, trades []models.Trade) Report {
	p := YesProbability(market.OutcomePrices)
	volume := market.Volume.Float64()
	volume24h := market.Volume24hr.Float64()

	score := (p - 0.5) * 2
	sentiment := classify(p)

	volumeTrend := analyzeVolume(volume, volume24h)
	momentum := analyzeMomentum(p, volume)

	signals := make([]Signal, 0, 4)
	signals = append(signals, volumeSignals(volumeTrend.Change, sentiment)...)
	signals = append(signals, momentumSignals(p)...)
	signals = append(signals, whaleSignals(trades)...)
	signals = append(signals, smartMoneySignals(p, volume)...)

	anomalies := detectAnomalies(p, volumeTrend.Change)

	return Report{
		MarketID:      market.ID,
		Sentiment:     sentiment,
		Score:         score,
		Confidence:    confidence(volume, len(signals), score),
		Prediction:    predict(sentiment, countStrong(signals), volumeTrend.Trend),
		Probability:   p,
		Signals:       signals,
		VolumeTrend:   volumeTrend,
		PriceMomentum: momentum,
		Anomalies:     anomalies,
		GeneratedAt:   time.Now().UTC(),
	}
}

// YesProbability extracts outcome index 0 from Gamma's outcomePrices, which
// may be an array or an array encoded as a JSON string, holding numbers or
// numeric strings. Anything unusable yields 0.5.
func YesProbability(raw json.RawMessage) float64 {
	const fallback = 0.5
	if len(raw) == 0 {
		return fallback
	}

	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}

	var prices []interface{}
	if err := json.Unmarshal(raw, &prices); err != nil || len(prices) == 0 {
		return fallback
	}

	var p float64
	switch v := prices[0].(type) {
	case float64:
		p = v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fallback
		}
		p = parsed
	default:
		return fallback
	}

	if math.IsNaN(p) || math.IsInf(p, 0) {
		return fallback
	}
	return p
}

func classify(p float64) Sentiment {
	switch {
	case p > bullishAbove:
		return Bullish
	case p < bearishBelow:
		return Bearish
	default:
		return Neutral
	}
}

func analyzeVolume(volume, volume24h float64) VolumeTrend {
	change := 0.0
	if volume24h != 0 {
		change = (volume - volume24h) / volume24h * 100
	}

	trend := TrendStable
	switch {
	case change > trendBand:
		trend = TrendIncreasing
	case change < -trendBand:
		trend = TrendDecreasing
	}

	return VolumeTrend{
		Change:         change,
		Trend:          trend,
		Interpretation: interpretVolume(volume),
	}
}

func interpretVolume(volume float64) string {
	switch {
	case volume < 10000:
		return "Low trading activity; prices can move on small orders"
	case volume < 100000:
		return "Moderate trading activity with developing interest"
	case volume < 500000:
		return "Healthy trading activity with active participation"
	case volume < 1000000:
		return "High trading activity; the market is well followed"
	default:
		return "Very high trading activity; prices reflect deep consensus"
	}
}

func analyzeMomentum(p, volume float64) PriceMomentum {
	direction := DirectionSideways
	switch {
	case p > 0.55:
		direction = DirectionUp
	case p < 0.45:
		direction = DirectionDown
	}

	volatility := VolatilityLow
	switch {
	case volume > 500000:
		volatility = VolatilityHigh
	case volume > 100000:
		volatility = VolatilityMedium
	}

	return PriceMomentum{
		Direction:  direction,
		Momentum:   (p - 0.5) * 200,
		Volatility: volatility,
		Support:    math.Max(0, p-supportBand),
		Resistance: math.Min(1, p+supportBand),
	}
}

func volumeSignals(change float64, sentiment Sentiment) []Signal {
	if change <= volumeSpikeAt {
		return nil
	}

	strength := StrengthModerate
	if change > volumeSpikeHard {
		strength = StrengthStrong
	}

	impact := ImpactNeutral
	switch sentiment {
	case Bullish:
		impact = ImpactPositive
	case Bearish:
		impact = ImpactNegative
	}

	return []Signal{{
		Type:        SignalVolumeSpike,
		Strength:    strength,
		Impact:      impact,
		Description: fmt.Sprintf("Volume is %.0f%% above the last 24h", change),
	}}
}

func momentumSignals(p float64) []Signal {
	distance := math.Abs(p - 0.5)
	if distance <= momentumAt {
		return nil
	}

	strength := StrengthModerate
	if distance > momentumHard {
		strength = StrengthStrong
	}

	impact := ImpactNegative
	side := "NO"
	if p > 0.5 {
		impact = ImpactPositive
		side = "YES"
	}

	return []Signal{{
		Type:        SignalPriceMomentum,
		Strength:    strength,
		Impact:      impact,
		Description: fmt.Sprintf("Price has moved decisively toward %s (%.0f%%)", side, p*100),
	}}
}

func whaleSignals(trades []models.Trade) []Signal {
	var buys, sells int
	for _, trade := range trades {
		if !trade.Size.GreaterThan(whaleSize) {
			continue
		}
		switch models.TradeSide(strings.ToUpper(string(trade.Side))) {
		case models.SideBuy:
			buys++
		case models.SideSell:
			sells++
		}
	}

	if buys+sells <= whaleMinTrades {
		return nil
	}

	switch {
	case float64(buys) > whaleDominance*float64(sells):
		return []Signal{{
			Type:        SignalWhaleAccumulation,
			Strength:    StrengthStrong,
			Impact:      ImpactPositive,
			Description: fmt.Sprintf("Large traders are buying: %d large buys vs %d large sells", buys, sells),
		}}
	case float64(sells) > whaleDominance*float64(buys):
		return []Signal{{
			Type:        SignalWhaleAccumulation,
			Strength:    StrengthStrong,
			Impact:      ImpactNegative,
			Description: fmt.Sprintf("Large traders are selling: %d large sells vs %d large buys", sells, buys),
		}}
	}
	return nil
}

func smartMoneySignals(p, volume float64) []Signal {
	if volume <= smartMoneyVolume || (p <= smartMoneyHigh && p >= smartMoneyLow) {
		return nil
	}

	impact := ImpactNegative
	if p > smartMoneyHigh {
		impact = ImpactPositive
	}

	return []Signal{{
		Type:        SignalSmartMoney,
		Strength:    StrengthStrong,
		Impact:      impact,
		Description: "Heavy volume behind a lopsided price suggests informed positioning",
	}}
}

func detectAnomalies(p, change float64) []Anomaly {
	anomalies := make([]Anomaly, 0, 2)

	if change > unusualVolumeAt {
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalyUnusualVolume,
			Severity:    SeverityHigh,
			Description: fmt.Sprintf("Volume change of %.0f%% is far outside the usual range", change),
		})
	}

	if p > shiftHigh || p < shiftLow {
		severity := SeverityMedium
		if p > shiftExtremeHigh || p < shiftExtremeLow {
			severity = SeverityHigh
		}
		anomalies = append(anomalies, Anomaly{
			Type:        AnomalySuddenShift,
			Severity:    severity,
			Description: fmt.Sprintf("Price at %.0f%% is near certainty", p*100),
		})
	}

	return anomalies
}

func countStrong(signals []Signal) int {
	n := 0
	for _, s := range signals {
		if s.Strength == StrengthStrong {
			n++
		}
	}
	return n
}

// predict is a fixed decision table on (sentiment, strong signals, trend)
func predict(sentiment Sentiment, strong int, trend string) string {
	switch sentiment {
	case Bullish:
		switch {
		case strong >= 2:
			return "Strong bullish outlook: multiple strong signals point to YES"
		case trend == TrendIncreasing:
			return "Moderately bullish: rising volume supports the YES side"
		default:
			return "Leaning bullish: the market favors YES"
		}
	case Bearish:
		switch {
		case strong >= 2:
			return "Strong bearish outlook: multiple strong signals point to NO"
		case trend == TrendIncreasing:
			return "Moderately bearish: rising volume supports the NO side"
		default:
			return "Leaning bearish: the market favors NO"
		}
	default:
		switch {
		case strong >= 1:
			return "Uncertain: strong signals without a clear direction"
		case trend == TrendIncreasing:
			return "Uncertain but heating up: volume is rising on an even market"
		default:
			return "Uncertain: the market is evenly split"
		}
	}
}

func confidence(volume float64, signalCount int, score float64) float64 {
	c := math.Min(volumeConfidenceCap, volume/volumeConfidenceDiv) +
		float64(signalCount)*0.1 +
		math.Abs(score)*0.3
	return math.Min(confidenceCeiling, math.Max(confidenceFloor, c))
}
