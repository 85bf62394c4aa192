package levels

import (
	"time"

	"levelscope/internal/domain/market_data"
	"levelscope/pkg/optional"
)

// VolatilityRegime buckets ATR percent
type VolatilityRegime string

const (
	VolatilityLow     VolatilityRegime = "low"
	VolatilityMedium  VolatilityRegime = "medium"
	VolatilityHigh    VolatilityRegime = "high"
	VolatilityUnknown VolatilityRegime = "unknown"
)

// ATR holds average true range and the derived regime
type ATR struct {
	Period  int                     `json:"period"`
	Value   float64                 `json:"value"`
	Percent optional.Value[float64] `json:"percent,omitzero"`
	Regime  VolatilityRegime        `json:"regime"`
}

// Bollinger holds the latest Bollinger band snapshot
type Bollinger struct {
	Period    int                     `json:"period"`
	Upper     float64                 `json:"upper"`
	Middle    float64                 `json:"middle"`
	Lower     float64                 `json:"lower"`
	Bandwidth float64                 `json:"bandwidth"`
	PercentB  optional.Value[float64] `json:"percent_b,omitzero"`
	Squeeze   bool                    `json:"squeeze"`
}

// ExtensionStatus buckets the ATR-normalized distance from EMA21
type ExtensionStatus string

const (
	ExtensionNormal     ExtensionStatus = "normal"
	ExtensionModerate   ExtensionStatus = "moderately_extended"
	ExtensionOverextend ExtensionStatus = "overextended"
	ExtensionExtreme    ExtensionStatus = "extreme"
)

// ExtensionDirection is the sign of the distance from EMA21
type ExtensionDirection string

const (
	ExtensionAbove ExtensionDirection = "above"
	ExtensionBelow ExtensionDirection = "below"
	ExtensionAt    ExtensionDirection = "at"
)

// Overextension describes how stretched price is from EMA21
type Overextension struct {
	DistancePct           float64                 `json:"distance_pct"`
	ATRNormalizedDistance optional.Value[float64] `json:"atr_normalized_distance,omitzero"`
	Status                ExtensionStatus         `json:"status"`
	Direction             ExtensionDirection      `json:"direction"`
	SignalType            string                  `json:"signal_type"`
}

// LegDirection is the direction of the swing a Fibonacci grid is drawn on
type LegDirection string

const (
	LegUp   LegDirection = "up"   // low then high
	LegDown LegDirection = "down" // high then low
)

// FibLevel is one retracement ratio and its price
type FibLevel struct {
	Ratio float64 `json:"ratio"`
	Price float64 `json:"price"`
}

// Fibonacci is a retracement grid over the selected swing leg
type Fibonacci struct {
	Direction          LegDirection `json:"direction"`
	SwingHigh          SwingPoint   `json:"swing_high"`
	SwingLow           SwingPoint   `json:"swing_low"`
	Levels             []FibLevel   `json:"levels"`
	CurrentRetracement float64      `json:"current_retracement"`
}

// VolumeNode is a price bucket with disproportionately high volume
type VolumeNode struct {
	Price     float64 `json:"price"`
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	Volume    float64 `json:"volume"`
	Intensity float64 `json:"intensity"` // volume relative to the point of control
}

// VolumeProfile is a volume-by-price histogram summary
type VolumeProfile struct {
	Bins          int                     `json:"bins"`
	TotalVolume   float64                 `json:"total_volume"`
	POC           optional.Value[float64] `json:"poc,omitzero"`
	ValueAreaHigh optional.Value[float64] `json:"value_area_high,omitzero"`
	ValueAreaLow  optional.Value[float64] `json:"value_area_low,omitzero"`
	Nodes         []VolumeNode            `json:"nodes"`
}

// TrendDirection is the classified trend
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// Bias is the trading bias derived from the trend
type Bias string

const (
	BiasLong    Bias = "long"
	BiasShort   Bias = "short"
	BiasNeutral Bias = "neutral"
)

// Trend summarizes EMA alignment and slope
type Trend struct {
	Direction   TrendDirection          `json:"direction"`
	Strength    float64                 `json:"strength"` // 0-100 alignment consistency
	Bias        Bias                    `json:"bias"`
	EMA9Slope   float64                 `json:"ema9_slope_pct"`
	EMA21Slope  optional.Value[float64] `json:"ema21_slope_pct,omitzero"`
	EMA200Slope optional.Value[float64] `json:"ema200_slope_pct,omitzero"`
	Signals     []string                `json:"signals"`
}

// IndicatorSet is the per-request indicator snapshot.
// It is built once and never mutated afterwards.
type IndicatorSet struct {
	Symbol        string                          `json:"symbol"`
	Interval      string                          `json:"interval"`
	BarCount      int                             `json:"bar_count"`
	CurrentPrice  float64                         `json:"current_price"`
	AsOf          time.Time                       `json:"as_of"`
	EMA           map[int]optional.Value[float64] `json:"ema,omitzero"`
	ATR           ATR                             `json:"atr"`
	Bollinger     Bollinger                       `json:"bollinger"`
	Overextension optional.Value[Overextension]   `json:"overextension,omitzero"`
	Fibonacci     optional.Value[Fibonacci]       `json:"fibonacci,omitzero"`
	VolumeProfile VolumeProfile                   `json:"volume_profile"`
	Trend         Trend                           `json:"trend"`
	SwingPoints   []SwingPoint                    `json:"swing_points"`

	// Bars is the validated input series, kept for touch counting
	Bars []market_data.Bar `json:"-"`
}

// EMAValue returns the EMA for a period if it was computed
func (s *IndicatorSet) EMAValue(period int) (float64, bool) {
	v, ok := s.EMA[period]
	if !ok {
		return 0, false
	}
	return v.Get()
}
