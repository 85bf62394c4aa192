package market_data

import "time"

// Bar is one interval's OHLCV record. Bars are treated as immutable values.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TypicalPrice returns (high + low + close) / 3
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Series is an ordered bar sequence for one symbol and interval
type Series struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"` // free text, e.g. 1h, 4h, 1d
	Bars     []Bar  `json:"bars"`
}

// Last returns the most recent bar. Callers must ensure the series is not empty.
func (s Series) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

// Closes extracts close prices in chronological order
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// HighLowClose extracts high, low and close slices in chronological order
func HighLowClose(bars []Bar) (high, low, close []float64) {
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	close = make([]float64, len(bars))
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		close[i] = b.Close
	}
	return high, low, close
}
