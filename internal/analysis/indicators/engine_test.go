package indicators

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/internal/testsupport"
	"levelscope/pkg/errors"
)

func newTestEngine() *Engine {
	return NewEngine(tuning.Default())
}

func TestEMA_SatisfiesRecurrence(t *testing.T) {
	closes := testsupport.ZigZagCloses(80, 90, 110, 7)

	for _, period := range []int{9, 21, 50} {
		series, ok := emaSeriesFor(closes, period)
		require.True(t, ok)

		seed := 0.0
		for _, c := range closes[:period] {
			seed += c
		}
		seed /= float64(period)
		assert.InDelta(t, seed, series[period-1], 1e-9, "period %d seed", period)

		k := 2.0 / float64(period+1)
		for i := period; i < len(closes); i++ {
			want := closes[i]*k + series[i-1]*(1-k)
			assert.InDelta(t, want, series[i], 1e-9, "period %d index %d", period, i)
		}
	}
}

func TestEMA_StepConvergesMonotonically(t *testing.T) {
	closes := testsupport.StepCloses(30, 30, 100, 110)
	period := 9
	k := 2.0 / float64(period+1)

	series, ok := emaSeriesFor(closes, period)
	require.True(t, ok)
	assert.InDelta(t, 100.0, series[29], 1e-9)

	for i := 30; i < len(closes); i++ {
		assert.Greater(t, series[i], series[i-1], "index %d must move toward the new level", i)
		assert.Less(t, series[i], 110.0)
		gap, prevGap := 110-series[i], 110-series[i-1]
		assert.InDelta(t, (1-k)*prevGap, gap, 1e-9, "index %d gap shrinks by the multiplier", i)
	}
}

func TestEMA_PeriodLongerThanSeries(t *testing.T) {
	_, ok := emaSeriesFor(testsupport.LinearCloses(50, 100, 120), 200)
	assert.False(t, ok)
}

func TestTrueRanges(t *testing.T) {
	bars := testsupport.BarsFromCloses([]float64{100, 104, 101}, 1)
	// bar1: open 100 close 104 -> H 105 L 99; bar2: open 104 close 101 -> H 105 L 100
	assert.Equal(t, []float64{6, 5}, trueRanges(bars))

	gap := testsupport.FlatBars(2, 100)
	gap[1].Open, gap[1].High, gap[1].Low, gap[1].Close = 110, 112, 109, 111
	assert.Equal(t, []float64{12}, trueRanges(gap), "gap up measures from previous close")
}

func TestATR_NonNegativeAndIdempotent(t *testing.T) {
	e := newTestEngine()

	for name, bars := range map[string][]market_data.Bar{
		"flat":      testsupport.FlatBars(25, 100),
		"rising":    testsupport.RisingWithPullbacks(),
		"swing":     testsupport.SwingHighThenLow(),
		"zigzag":    testsupport.BarsFromCloses(testsupport.ZigZagCloses(60, 50, 70, 5), 1),
		"high vol":  testsupport.BarsFromCloses(testsupport.ZigZagCloses(40, 50, 90, 2), 3),
		"low price": testsupport.BarsFromCloses(testsupport.LinearCloses(30, 0.5, 0.6), 0.001),
	} {
		price := bars[len(bars)-1].Close

		first := e.computeATR(bars, price)
		second := e.computeATR(bars, price)

		assert.GreaterOrEqual(t, first.Value, 0.0, name)
		assert.Equal(t, first, second, name)
		assert.NotEqual(t, levels.VolatilityUnknown, first.Regime, name)
	}
}

func TestATR_Regimes(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		pct  float64
		want levels.VolatilityRegime
	}{
		{0, levels.VolatilityLow},
		{1.49, levels.VolatilityLow},
		{1.5, levels.VolatilityMedium},
		{3.49, levels.VolatilityMedium},
		{3.5, levels.VolatilityHigh},
		{12, levels.VolatilityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.regime(tt.pct), "pct %v", tt.pct)
	}
}

func TestBollinger_Ordering(t *testing.T) {
	e := newTestEngine()
	closes := testsupport.ZigZagCloses(60, 95, 105, 4)

	bb := e.computeBollinger(closes, closes[len(closes)-1])

	assert.GreaterOrEqual(t, bb.Upper, bb.Middle)
	assert.GreaterOrEqual(t, bb.Middle, bb.Lower)
	assert.Greater(t, bb.Bandwidth, 0.0)
	_, ok := bb.PercentB.Get()
	assert.True(t, ok)
}

func TestBollinger_FlatSeriesIsDegenerate(t *testing.T) {
	e := newTestEngine()
	closes := testsupport.LinearCloses(30, 100, 100)

	bb := e.computeBollinger(closes, 100)

	assert.InDelta(t, 100.0, bb.Middle, 1e-9)
	assert.False(t, bb.PercentB.IsPresent(), "percent b is undefined on collapsed bands")
	assert.Equal(t, 0.0, bb.Bandwidth)
	assert.False(t, bb.Squeeze)
}

func TestBollinger_SqueezeAfterQuietPeriod(t *testing.T) {
	e := newTestEngine()
	closes := append(testsupport.ZigZagCloses(40, 90, 110, 2), testsupport.ZigZagCloses(20, 100, 100.5, 1)...)

	bb := e.computeBollinger(closes, closes[len(closes)-1])

	assert.True(t, bb.Squeeze)
}

func TestExtensionSignal(t *testing.T) {
	tests := []struct {
		status    levels.ExtensionStatus
		direction levels.ExtensionDirection
		want      string
	}{
		{levels.ExtensionNormal, levels.ExtensionAbove, "none"},
		{levels.ExtensionModerate, levels.ExtensionAbove, "watch_pullback"},
		{levels.ExtensionModerate, levels.ExtensionBelow, "watch_bounce"},
		{levels.ExtensionOverextend, levels.ExtensionAbove, "pullback_likely"},
		{levels.ExtensionExtreme, levels.ExtensionBelow, "bounce_likely"},
		{levels.ExtensionExtreme, levels.ExtensionAt, "none"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extensionSignal(tt.status, tt.direction), "%s/%s", tt.status, tt.direction)
	}
}

func TestExtensionStatus(t *testing.T) {
	e := newTestEngine()

	assert.Equal(t, levels.ExtensionNormal, e.extensionStatus(1.49))
	assert.Equal(t, levels.ExtensionModerate, e.extensionStatus(1.5))
	assert.Equal(t, levels.ExtensionOverextend, e.extensionStatus(2.5))
	assert.Equal(t, levels.ExtensionExtreme, e.extensionStatus(3.5))
}

func TestComputeAll_FlatSeries(t *testing.T) {
	set, err := newTestEngine().ComputeAll(testsupport.FlatBars(25, 100), "TEST", "1d")
	require.NoError(t, err)

	assert.Equal(t, 25, set.BarCount)
	assert.Equal(t, 100.0, set.CurrentPrice)
	assert.Equal(t, levels.TrendNeutral, set.Trend.Direction)
	assert.Equal(t, levels.BiasNeutral, set.Trend.Bias)
	assert.Equal(t, 0.0, set.Trend.Strength)
	assert.InDelta(t, 0.0, set.ATR.Value, 1e-9)
	assert.Equal(t, levels.VolatilityLow, set.ATR.Regime)

	ema21, ok := set.EMAValue(21)
	require.True(t, ok)
	assert.InDelta(t, 100.0, ema21, 1e-9)
	_, ok = set.EMAValue(200)
	assert.False(t, ok, "ema200 needs 200 bars")
	assert.Contains(t, set.EMA, 200)

	ext, ok := set.Overextension.Get()
	require.True(t, ok)
	assert.Equal(t, levels.ExtensionAt, ext.Direction)
	assert.False(t, ext.ATRNormalizedDistance.IsPresent(), "atr percent is zero")
	assert.Equal(t, "none", ext.SignalType)

	assert.False(t, set.Fibonacci.IsPresent())
	assert.Empty(t, set.SwingPoints)

	poc, ok := set.VolumeProfile.POC.Get()
	require.True(t, ok)
	assert.Equal(t, 100.0, poc)
	assert.Equal(t, 1, set.VolumeProfile.Bins)
	assert.Empty(t, set.VolumeProfile.Nodes)
}

func TestComputeAll_Fibonacci(t *testing.T) {
	set, err := newTestEngine().ComputeAll(testsupport.SwingHighThenLow(), "TEST", "1d")
	require.NoError(t, err)

	fib, ok := set.Fibonacci.Get()
	require.True(t, ok)
	assert.Equal(t, levels.LegDown, fib.Direction)
	assert.Equal(t, 120.0, fib.SwingHigh.Price)
	assert.Equal(t, 100.0, fib.SwingLow.Price)
	require.Len(t, fib.Levels, 7)

	prices := map[float64]float64{}
	for _, l := range fib.Levels {
		prices[l.Ratio] = l.Price
	}
	assert.InDelta(t, 112.36, prices[0.618], 1e-9)
	assert.InDelta(t, 110.0, prices[0.5], 1e-9)
	assert.InDelta(t, 100.0, prices[0], 1e-9)
	assert.InDelta(t, 120.0, prices[1], 1e-9)
	assert.InDelta(t, 0.45, fib.CurrentRetracement, 1e-9)
}

func TestComputeAll_FibonacciNeedsLargeEnoughMove(t *testing.T) {
	// the only leg is a 20% move
	cfg := tuning.Default()
	cfg.Intervals["1d"] = tuning.IntervalProfile{IdealBars: 200, FibMinMovePct: 25}

	set, err := NewEngine(cfg).ComputeAll(testsupport.SwingHighThenLow(), "TEST", "1d")
	require.NoError(t, err)
	assert.False(t, set.Fibonacci.IsPresent())
}

func TestComputeAll_Trend(t *testing.T) {
	e := newTestEngine()

	up, err := e.ComputeAll(testsupport.BarsFromCloses(testsupport.LinearCloses(60, 100, 130), 0.5), "TEST", "1d")
	require.NoError(t, err)
	assert.Equal(t, levels.TrendBullish, up.Trend.Direction)
	assert.Equal(t, levels.BiasLong, up.Trend.Bias)
	assert.Equal(t, 100.0, up.Trend.Strength)
	assert.Greater(t, up.Trend.EMA9Slope, 0.0)
	assert.Contains(t, up.Trend.Signals, "ema9_above_ema21")
	assert.False(t, up.Trend.EMA200Slope.IsPresent())

	down, err := e.ComputeAll(testsupport.BarsFromCloses(testsupport.LinearCloses(60, 130, 100), 0.5), "TEST", "1d")
	require.NoError(t, err)
	assert.Equal(t, levels.TrendBearish, down.Trend.Direction)
	assert.Equal(t, levels.BiasShort, down.Trend.Bias)

	ext, ok := up.Overextension.Get()
	require.True(t, ok)
	assert.Equal(t, levels.ExtensionAbove, ext.Direction)
}

func TestComputeAll_VolumeProfile(t *testing.T) {
	e := newTestEngine()

	bars := testsupport.BarsFromCloses(testsupport.LinearCloses(30, 100, 129), 0.5)
	bars[29].Volume = 50000
	set, err := e.ComputeAll(bars, "TEST", "1d")
	require.NoError(t, err)

	vp := set.VolumeProfile
	assert.Equal(t, 24, vp.Bins)
	assert.InDelta(t, 79000.0, vp.TotalVolume, 1e-9)
	require.Len(t, vp.Nodes, 1)
	assert.Equal(t, 1.0, vp.Nodes[0].Intensity)
	poc, ok := vp.POC.Get()
	require.True(t, ok)
	assert.Equal(t, poc, vp.Nodes[0].Price)
	assert.True(t, vp.Nodes[0].Low <= bars[29].TypicalPrice() && bars[29].TypicalPrice() <= vp.Nodes[0].High)

	vah, _ := vp.ValueAreaHigh.Get()
	val, _ := vp.ValueAreaLow.Get()
	assert.LessOrEqual(t, val, poc)
	assert.GreaterOrEqual(t, vah, poc)
}

func TestComputeAll_ZeroVolume(t *testing.T) {
	bars := testsupport.RisingWithPullbacks()
	for i := range bars {
		bars[i].Volume = 0
	}

	set, err := newTestEngine().ComputeAll(bars, "TEST", "1d")
	require.NoError(t, err)

	assert.False(t, set.VolumeProfile.POC.IsPresent())
	assert.Empty(t, set.VolumeProfile.Nodes)
}

func TestComputeAll_VolumeOverflowDropsProfile(t *testing.T) {
	bars := testsupport.RisingWithPullbacks()
	for i := range bars {
		bars[i].Volume = math.MaxFloat64 / 4
	}

	set, err := newTestEngine().ComputeAll(bars, "TEST", "1d")
	require.NoError(t, err)

	vp := set.VolumeProfile
	assert.False(t, math.IsInf(vp.TotalVolume, 0))
	assert.False(t, vp.POC.IsPresent())
	assert.Empty(t, vp.Nodes)

	_, err = json.Marshal(set)
	require.NoError(t, err)
}

func TestComputeAll_TwentyBarsLeavesEMA21Absent(t *testing.T) {
	set, err := newTestEngine().ComputeAll(testsupport.FlatBars(20, 50), "TEST", "1h")
	require.NoError(t, err)

	_, ok := set.EMAValue(21)
	assert.False(t, ok)
	assert.False(t, set.Overextension.IsPresent())
	assert.False(t, set.Trend.EMA21Slope.IsPresent())
}

func TestComputeAll_RejectsInvalidInput(t *testing.T) {
	set, err := newTestEngine().ComputeAll(testsupport.FlatBars(19, 100), "TEST", "1d")

	require.Error(t, err)
	assert.Nil(t, set)
	assert.True(t, errors.Is(err, errors.ErrInsufficientBars))
	assert.True(t, errors.IsInputError(err))
}
