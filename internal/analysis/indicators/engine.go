// Package indicators computes the per-request IndicatorSet: EMA family,
// ATR and volatility regime, Bollinger bands, overextension, Fibonacci
// retracement, trend and volume profile.
package indicators

import (
	"levelscope/internal/analysis/swing"
	"levelscope/internal/analysis/tuning"
	"levelscope/internal/analysis/validator"
	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/pkg/errors"
	"levelscope/pkg/optional"
)

// Engine computes indicator snapshots. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	cfg       tuning.Config
	validator *validator.Validator
	detector  *swing.Detector
}

// NewEngine creates an indicator engine for the given tuning
func NewEngine(cfg tuning.Config) *Engine {
	return &Engine{
		cfg:       cfg,
		validator: validator.New(cfg),
		detector:  swing.NewDetector(cfg.SwingWindow),
	}
}

// ComputeAll validates bars and builds the IndicatorSet.
// It fails only when the validator would.
func (e *Engine) ComputeAll(bars []market_data.Bar, symbol, interval string) (*levels.IndicatorSet, error) {
	bars, err := e.validator.Validate(bars, symbol, interval)
	if err != nil {
		return nil, errors.Wrap(err, "compute indicators")
	}

	closes := market_data.Closes(bars)
	last := bars[len(bars)-1]
	price := last.Close

	emaSeries := make(map[int][]float64, len(e.cfg.EMAPeriods))
	emaValues := make(map[int]optional.Value[float64], len(e.cfg.EMAPeriods))
	for _, period := range e.cfg.EMAPeriods {
		series, ok := emaSeriesFor(closes, period)
		if !ok {
			emaValues[period] = optional.None[float64]()
			continue
		}
		emaSeries[period] = series
		emaValues[period] = optional.Some(series[len(series)-1])
	}

	atr := e.computeATR(bars, price)
	points := e.detector.Find(bars)

	set := &levels.IndicatorSet{
		Symbol:        symbol,
		Interval:      tuning.NormalizeInterval(interval),
		BarCount:      len(bars),
		CurrentPrice:  price,
		AsOf:          last.Time,
		EMA:           emaValues,
		ATR:           atr,
		Bollinger:     e.computeBollinger(closes, price),
		Overextension: e.computeOverextension(price, emaValues[21], atr),
		Fibonacci:     e.computeFibonacci(points, price, interval),
		VolumeProfile: e.computeVolumeProfile(bars),
		Trend:         e.computeTrend(price, emaSeries),
		SwingPoints:   points,
		Bars:          bars,
	}

	return set, nil
}
