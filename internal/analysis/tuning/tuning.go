// Package tuning holds every weight and threshold used by the analysis
// pipeline in one injectable object. Algorithm code reads from Config and
// never embeds its own literals.
package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"levelscope/pkg/errors"
)

// IntervalProfile sizes interval-dependent thresholds
type IntervalProfile struct {
	IdealBars     int     `json:"ideal_bars"`       // bar count for full data-sufficiency credit
	FibMinMovePct float64 `json:"fib_min_move_pct"` // minimum swing leg size for a Fibonacci grid
}

// FactorWeights are the relative weights of each confluence factor
type FactorWeights struct {
	Touches     float64 `json:"touches"`
	Swing       float64 `json:"swing"`
	Fibonacci   float64 `json:"fibonacci"`
	VolumeNode  float64 `json:"volume_node"`
	DynamicMA   float64 `json:"dynamic_ma"`
	RoundNumber float64 `json:"round_number"`
}

// Total returns the sum of all weights
func (w FactorWeights) Total() float64 {
	return w.Touches + w.Swing + w.Fibonacci + w.VolumeNode + w.DynamicMA + w.RoundNumber
}

// DynamicLevel marks an EMA period whose value becomes a level candidate
type DynamicLevel struct {
	Period    int     `json:"period"`
	Intensity float64 `json:"intensity"`
}

// Config is the full tuning surface of the pipeline
type Config struct {
	MinBars int `json:"min_bars"`

	// Moving averages
	EMAPeriods    []int   `json:"ema_periods"`
	SlopeLookback int     `json:"slope_lookback"`
	FlatSlopePct  float64 `json:"flat_slope_pct"`

	// Volatility
	ATRPeriod          int     `json:"atr_period"`
	VolatilityLowBelow float64 `json:"volatility_low_below"`
	VolatilityHighFrom float64 `json:"volatility_high_from"`

	// Bollinger
	BollingerPeriod int     `json:"bollinger_period"`
	BollingerStdDev float64 `json:"bollinger_std_dev"`
	SqueezeLookback int     `json:"squeeze_lookback"`
	SqueezeRatio    float64 `json:"squeeze_ratio"`

	// Overextension (ATR-normalized distance from EMA21)
	ExtensionModerateFrom float64 `json:"extension_moderate_from"`
	ExtensionOverFrom     float64 `json:"extension_over_from"`
	ExtensionExtremeFrom  float64 `json:"extension_extreme_from"`

	// Trend
	TrendNeutralBelow float64 `json:"trend_neutral_below"`
	TrendBiasFrom     float64 `json:"trend_bias_from"`

	// Swings and Fibonacci
	SwingWindow int       `json:"swing_window"`
	FibRatios   []float64 `json:"fib_ratios"`

	// Volume profile
	VolumeBins          int     `json:"volume_bins"`
	ValueAreaPct        float64 `json:"value_area_pct"`
	HighVolumeNodeRatio float64 `json:"high_volume_node_ratio"`

	// Candidates
	SwingBaseIntensity  float64        `json:"swing_base_intensity"` // oldest swing; the newest gets 1
	DynamicLevels       []DynamicLevel `json:"dynamic_levels"`
	FibKeyRatios        []float64      `json:"fib_key_ratios"`
	FibMinorRatios      []float64      `json:"fib_minor_ratios"`
	FibKeyIntensity     float64        `json:"fib_key_intensity"`
	FibMinorIntensity   float64        `json:"fib_minor_intensity"`
	FibEdgeIntensity    float64        `json:"fib_edge_intensity"`
	RoundMajorIntensity float64        `json:"round_major_intensity"` // multiples of 10 steps
	RoundHalfIntensity  float64        `json:"round_half_intensity"`  // multiples of 5 steps
	RoundMinorIntensity float64        `json:"round_minor_intensity"`
	ZoneWidthFactor     float64        `json:"zone_width_factor"`
	MinZoneWidthPct     float64        `json:"min_zone_width_pct"`
	RoundNumberRangePct float64        `json:"round_number_range_pct"`
	RoundNumberRangeATR float64        `json:"round_number_range_atr"`
	MaxRoundNumbers     int            `json:"max_round_numbers"`

	// Confluence scoring
	Weights         FactorWeights `json:"weights"`
	TouchSaturation int           `json:"touch_saturation"`
	StrongFrom      float64       `json:"strong_from"`
	MediumFrom      float64       `json:"medium_from"`
	MinScore        float64       `json:"min_score"`
	DisplayLimit    int           `json:"display_limit"`

	// Confidence
	ConfidenceBase          float64 `json:"confidence_base"`
	SufficiencyWeight       float64 `json:"sufficiency_weight"`
	TrendClarityWeight      float64 `json:"trend_clarity_weight"`
	ConsensusWeight         float64 `json:"consensus_weight"`
	MissingSidePenalty      float64 `json:"missing_side_penalty"`
	MediumVolatilityImpact  float64 `json:"medium_volatility_impact"`
	HighVolatilityImpact    float64 `json:"high_volatility_impact"`
	UnknownVolatilityImpact float64 `json:"unknown_volatility_impact"`
	ConfidenceHighFrom      float64 `json:"confidence_high_from"`
	ConfidenceMediumFrom    float64 `json:"confidence_medium_from"`

	Intervals       map[string]IntervalProfile `json:"intervals"`
	DefaultInterval IntervalProfile            `json:"default_interval"`
}

// Default returns the production tuning
func Default() Config {
	return Config{
		MinBars: 20,

		EMAPeriods:    []int{9, 21, 50, 200},
		SlopeLookback: 5,
		FlatSlopePct:  0.02,

		ATRPeriod:          10,
		VolatilityLowBelow: 1.5,
		VolatilityHighFrom: 3.5,

		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		SqueezeLookback: 20,
		SqueezeRatio:    0.75,

		ExtensionModerateFrom: 1.5,
		ExtensionOverFrom:     2.5,
		ExtensionExtremeFrom:  3.5,

		TrendNeutralBelow: 30,
		TrendBiasFrom:     60,

		SwingWindow: 3,
		FibRatios:   []float64{0, 0.236, 0.382, 0.5, 0.618, 0.786, 1},

		VolumeBins:          24,
		ValueAreaPct:        0.70,
		HighVolumeNodeRatio: 1.5,

		SwingBaseIntensity: 0.5,
		DynamicLevels: []DynamicLevel{
			{Period: 21, Intensity: 0.7},
			{Period: 200, Intensity: 1.0},
		},
		FibKeyRatios:        []float64{0.382, 0.5, 0.618},
		FibMinorRatios:      []float64{0.236, 0.786},
		FibKeyIntensity:     1.0,
		FibMinorIntensity:   0.6,
		FibEdgeIntensity:    0.4,
		RoundMajorIntensity: 1.0,
		RoundHalfIntensity:  0.7,
		RoundMinorIntensity: 0.4,
		ZoneWidthFactor:     0.25,
		MinZoneWidthPct:     0.05,
		RoundNumberRangePct: 3.0,
		RoundNumberRangeATR: 3.0,
		MaxRoundNumbers:     6,

		Weights: FactorWeights{
			Touches:     40,
			Swing:       15,
			Fibonacci:   15,
			VolumeNode:  15,
			DynamicMA:   10,
			RoundNumber: 5,
		},
		TouchSaturation: 5,
		StrongFrom:      70,
		MediumFrom:      40,
		MinScore:        15,
		DisplayLimit:    3,

		ConfidenceBase:          50,
		SufficiencyWeight:       30,
		TrendClarityWeight:      30,
		ConsensusWeight:         40,
		MissingSidePenalty:      10,
		MediumVolatilityImpact:  -5,
		HighVolatilityImpact:    -15,
		UnknownVolatilityImpact: -5,
		ConfidenceHighFrom:      70,
		ConfidenceMediumFrom:    45,

		Intervals: map[string]IntervalProfile{
			"1m":  {IdealBars: 200, FibMinMovePct: 0.5},
			"5m":  {IdealBars: 200, FibMinMovePct: 0.8},
			"15m": {IdealBars: 200, FibMinMovePct: 1.0},
			"30m": {IdealBars: 200, FibMinMovePct: 1.2},
			"1h":  {IdealBars: 200, FibMinMovePct: 1.5},
			"4h":  {IdealBars: 200, FibMinMovePct: 2.5},
			"1d":  {IdealBars: 200, FibMinMovePct: 4.0},
			"1w":  {IdealBars: 104, FibMinMovePct: 8.0},
		},
		DefaultInterval: IntervalProfile{IdealBars: 200, FibMinMovePct: 3.0},
	}
}

// intervalAliases maps common spellings to canonical labels
var intervalAliases = map[string]string{
	"1min": "1m", "5min": "5m", "15min": "15m", "30min": "30m",
	"60m": "1h", "1hr": "1h", "hourly": "1h", "240m": "4h",
	"d": "1d", "1day": "1d", "daily": "1d", "day": "1d",
	"w": "1w", "1wk": "1w", "weekly": "1w", "week": "1w",
}

// NormalizeInterval lowercases an interval label and resolves aliases
func NormalizeInterval(interval string) string {
	key := strings.ToLower(strings.TrimSpace(interval))
	if alias, ok := intervalAliases[key]; ok {
		return alias
	}
	return key
}

// Profile returns the profile for an interval label, or the default
func (c Config) Profile(interval string) IntervalProfile {
	if p, ok := c.Intervals[NormalizeInterval(interval)]; ok {
		return p
	}
	return c.DefaultInterval
}

// Validate checks the tuning is internally consistent
func (c Config) Validate() error {
	switch {
	case c.MinBars < 2:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: min_bars must be >= 2, got %d", c.MinBars)
	case c.ATRPeriod <= 0 || c.BollingerPeriod <= 0 || c.SwingWindow <= 0 || c.SlopeLookback <= 0:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: periods must be positive")
	case c.ATRPeriod >= c.MinBars || c.BollingerPeriod > c.MinBars:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: atr/bollinger periods must fit in min_bars")
	case c.VolatilityLowBelow >= c.VolatilityHighFrom:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: volatility thresholds out of order")
	case !(c.ExtensionModerateFrom < c.ExtensionOverFrom && c.ExtensionOverFrom < c.ExtensionExtremeFrom):
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: extension thresholds out of order")
	case c.MediumFrom >= c.StrongFrom:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: strength cutoffs out of order")
	case c.ConfidenceMediumFrom >= c.ConfidenceHighFrom:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: confidence cutoffs out of order")
	case c.Weights.Total() <= 0:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: factor weights must sum to a positive value")
	case c.TouchSaturation < 1:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: touch_saturation must be >= 1")
	case c.VolumeBins < 1:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: volume_bins must be >= 1")
	case c.ZoneWidthFactor < 0 || c.MinZoneWidthPct < 0:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: zone widths must be non-negative")
	case c.DisplayLimit < 0:
		return errors.Wrapf(errors.ErrInvalidInput, "tuning: display_limit must be non-negative")
	}
	for _, p := range c.EMAPeriods {
		if p <= 0 {
			return errors.Wrapf(errors.ErrInvalidInput, "tuning: ema period %d must be positive", p)
		}
	}
	return nil
}

// Fingerprint is a stable hash of the tuning, used in cache keys
func (c Config) Fingerprint() string {
	// encoding/json sorts map keys, so the encoding is stable
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}
