package indicators

import (
	"github.com/markcheno/go-talib"
)

// emaSeriesFor returns the full EMA series for a period. ta-lib seeds the
// series with the SMA of the first `period` closes and leaves earlier slots
// at zero, so only indexes >= period-1 are meaningful.
func emaSeriesFor(closes []float64, period int) ([]float64, bool) {
	if period <= 0 || len(closes) < period {
		return nil, false
	}
	return talib.Ema(closes, period), true
}

// slopePct is the percent change of a series over lookback bars ending at
// the last value. It reports false when the start falls before the first
// defined slot.
func slopePct(series []float64, period, lookback int) (float64, bool) {
	last := len(series) - 1
	start := last - lookback
	if start < period-1 || series[start] == 0 {
		return 0, false
	}
	return (series[last] - series[start]) / series[start] * 100, true
}
