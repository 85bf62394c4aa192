package testsupport

import (
	"time"

	"levelscope/internal/domain/market_data"
)

// BaseTime is the timestamp of the first bar produced by the builders
var BaseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// DefaultVolume is assigned to builder bars unless overridden
const DefaultVolume = 1000.0

// BarTime returns the timestamp of the i-th daily bar
func BarTime(i int) time.Time {
	return BaseTime.Add(time.Duration(i) * 24 * time.Hour)
}

// BarsFromCloses builds daily bars where each bar opens at the previous close
// and wicks extend spread beyond the body.
func BarsFromCloses(closes []float64, spread float64) []market_data.Bar {
	bars := make([]market_data.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = market_data.Bar{
			Time:   BarTime(i),
			Open:   open,
			High:   max(open, c) + spread,
			Low:    min(open, c) - spread,
			Close:  c,
			Volume: DefaultVolume,
		}
	}
	return bars
}

// FlatBars builds n bars with every price equal to price
func FlatBars(n int, price float64) []market_data.Bar {
	bars := make([]market_data.Bar, n)
	for i := range bars {
		bars[i] = market_data.Bar{
			Time:   BarTime(i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: DefaultVolume,
		}
	}
	return bars
}

// LinearCloses returns n closes moving linearly from `from` to `to`
func LinearCloses(n int, from, to float64) []float64 {
	closes := make([]float64, n)
	if n == 1 {
		closes[0] = from
		return closes
	}
	step := (to - from) / float64(n-1)
	for i := range closes {
		closes[i] = from + step*float64(i)
	}
	return closes
}

// StepCloses returns `flat` closes at `from` followed by `after` closes at `to`
func StepCloses(flat, after int, from, to float64) []float64 {
	closes := make([]float64, 0, flat+after)
	for i := 0; i < flat; i++ {
		closes = append(closes, from)
	}
	for i := 0; i < after; i++ {
		closes = append(closes, to)
	}
	return closes
}

// ZigZagCloses oscillates between lo and hi with the given half-period
func ZigZagCloses(n int, lo, hi float64, halfPeriod int) []float64 {
	closes := make([]float64, n)
	step := (hi - lo) / float64(halfPeriod)
	for i := range closes {
		phase := i % (2 * halfPeriod)
		if phase <= halfPeriod {
			closes[i] = lo + step*float64(phase)
		} else {
			closes[i] = hi - step*float64(phase-halfPeriod)
		}
	}
	return closes
}

// RisingWithPullbacks is 30 daily bars rising from 90 to 110 whose pullbacks
// bottom at exactly 95 three times (bars 9, 15 and 21).
func RisingWithPullbacks() []market_data.Bar {
	closes := []float64{
		90, 91.5, 93, 94.5, 96, 97.5, 98.5, 97.5, 96.2, 95.6,
		96.8, 98, 99, 98, 96.5, 95.7, 97, 98.5, 99.5, 98,
		96.5, 95.8, 97.5, 100, 102.5, 104.5, 106.5, 108, 109, 110,
	}
	bars := BarsFromCloses(closes, 0.3)
	for _, i := range PullbackIndexes {
		bars[i].Low = 95
	}
	return bars
}

// PullbackIndexes are the bars of RisingWithPullbacks that touch 95
var PullbackIndexes = []int{9, 15, 21}

// SwingHighThenLow is 30 daily bars with a single swing high at 120 (bar 10),
// a single swing low at 100 (bar 20) and a steady recovery to 109.
func SwingHighThenLow() []market_data.Bar {
	closes := []float64{
		105, 106.5, 108, 109.5, 111, 112.5, 114, 115, 116.5, 118,
		119, 117, 115, 113, 111, 109, 107, 105, 103, 101.5,
		100.5, 102, 103.5, 105, 106, 107, 107.5, 108, 108.5, 109,
	}
	bars := BarsFromCloses(closes, 0.3)
	bars[10].High = 120
	bars[20].Low = 100
	return bars
}
