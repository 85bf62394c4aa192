package indicators

import (
	"math"

	"levelscope/internal/domain/levels"
	"levelscope/pkg/optional"
)

// trendVotes tallies EMA alignment signals. Each available signal votes
// +1, -1 or 0.
type trendVotes struct {
	net       int
	available int
	signals   []string
}

func (v *trendVotes) compare(a, b float64, above, below string) {
	v.available++
	switch {
	case a > b:
		v.net++
		v.signals = append(v.signals, above)
	case a < b:
		v.net--
		v.signals = append(v.signals, below)
	}
}

func (v *trendVotes) slope(pct, flat float64, rising, falling string) {
	v.available++
	switch {
	case pct > flat:
		v.net++
		v.signals = append(v.signals, rising)
	case pct < -flat:
		v.net--
		v.signals = append(v.signals, falling)
	}
}

// computeTrend classifies the trend from price/EMA9/EMA21/EMA200 ordering
// and EMA slopes. Strength is the share of available signals that agree.
func (e *Engine) computeTrend(price float64, emaSeries map[int][]float64) levels.Trend {
	last := func(period int) (float64, bool) {
		s, ok := emaSeries[period]
		if !ok {
			return 0, false
		}
		return s[len(s)-1], true
	}
	slope := func(period int) (float64, bool) {
		s, ok := emaSeries[period]
		if !ok {
			return 0, false
		}
		return slopePct(s, period, e.cfg.SlopeLookback)
	}

	votes := &trendVotes{signals: make([]string, 0)}
	ema9, has9 := last(9)
	ema21, has21 := last(21)
	ema200, has200 := last(200)

	if has21 {
		votes.compare(price, ema21, "price_above_ema21", "price_below_ema21")
	}
	if has9 && has21 {
		votes.compare(ema9, ema21, "ema9_above_ema21", "ema9_below_ema21")
	}
	if has21 && has200 {
		votes.compare(ema21, ema200, "ema21_above_ema200", "ema21_below_ema200")
	}
	if has200 {
		votes.compare(price, ema200, "price_above_ema200", "price_below_ema200")
	}

	trend := levels.Trend{
		Direction:   levels.TrendNeutral,
		Bias:        levels.BiasNeutral,
		EMA21Slope:  optional.None[float64](),
		EMA200Slope: optional.None[float64](),
	}

	if s, ok := slope(9); ok {
		trend.EMA9Slope = s
		votes.slope(s, e.cfg.FlatSlopePct, "ema9_rising", "ema9_falling")
	}
	if s, ok := slope(21); ok {
		trend.EMA21Slope = optional.Some(s)
		votes.slope(s, e.cfg.FlatSlopePct, "ema21_rising", "ema21_falling")
	}
	if s, ok := slope(200); ok {
		trend.EMA200Slope = optional.Some(s)
	}

	trend.Signals = votes.signals
	if votes.available == 0 {
		return trend
	}

	trend.Strength = math.Abs(float64(votes.net)) / float64(votes.available) * 100
	if trend.Strength < e.cfg.TrendNeutralBelow {
		return trend
	}

	if votes.net > 0 {
		trend.Direction = levels.TrendBullish
		if trend.Strength >= e.cfg.TrendBiasFrom {
			trend.Bias = levels.BiasLong
		}
	} else {
		trend.Direction = levels.TrendBearish
		if trend.Strength >= e.cfg.TrendBiasFrom {
			trend.Bias = levels.BiasShort
		}
	}

	return trend
}
