package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/pkg/optional"
)

// trueRanges returns max(high-low, |high-prevClose|, |low-prevClose|) for
// every bar after the first.
func trueRanges(bars []market_data.Bar) []float64 {
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		trs = append(trs, math.Max(highLow, math.Max(highClose, lowClose)))
	}
	return trs
}

func (e *Engine) computeATR(bars []market_data.Bar, price float64) levels.ATR {
	period := e.cfg.ATRPeriod
	trs := trueRanges(bars)

	value := 0.0
	if len(trs) >= period {
		value = talib.Sma(trs, period)[len(trs)-1]
	} else if len(trs) > 0 {
		for _, tr := range trs {
			value += tr
		}
		value /= float64(len(trs))
	}
	// running-sum rounding can leave a tiny negative on an all-zero series
	if value < 0 || math.IsNaN(value) {
		value = 0
	}

	atr := levels.ATR{
		Period:  period,
		Value:   value,
		Percent: optional.None[float64](),
		Regime:  levels.VolatilityUnknown,
	}
	if price > 0 {
		pct := value / price * 100
		atr.Percent = optional.Some(pct)
		atr.Regime = e.regime(pct)
	}
	return atr
}

func (e *Engine) regime(atrPercent float64) levels.VolatilityRegime {
	switch {
	case atrPercent < e.cfg.VolatilityLowBelow:
		return levels.VolatilityLow
	case atrPercent >= e.cfg.VolatilityHighFrom:
		return levels.VolatilityHigh
	default:
		return levels.VolatilityMedium
	}
}
