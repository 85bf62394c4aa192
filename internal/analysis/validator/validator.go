package validator

import (
	"fmt"
	"math"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/market_data"
	"levelscope/pkg/errors"
)

// Validator checks the shape of an input series before any computation
type Validator struct {
	minBars int
}

// New creates a validator using the tuning's minimum bar count
func New(cfg tuning.Config) *Validator {
	return &Validator{minBars: cfg.MinBars}
}

// Validate fails fast with an input error when the series cannot be analyzed.
// On success the same slice is returned unchanged.
func (v *Validator) Validate(bars []market_data.Bar, symbol, interval string) ([]market_data.Bar, error) {
	if symbol == "" {
		return nil, errors.NewValidationError(errors.ErrMissingSymbol, "symbol", "required", symbol)
	}

	if len(bars) < v.minBars {
		return nil, errors.NewValidationError(errors.ErrInsufficientBars, "bars",
			fmt.Sprintf("need at least %d bars for %s %s", v.minBars, symbol, interval), len(bars))
	}

	for i, b := range bars {
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return nil, errors.NewValidationError(errors.ErrNonMonotonic,
				fmt.Sprintf("bars[%d].time", i), "must be after the previous bar", b.Time)
		}
		if field, value, ok := firstNonPositive(b); !ok {
			return nil, errors.NewValidationError(errors.ErrNonPositivePrice,
				fmt.Sprintf("bars[%d].%s", i, field), "must be a positive finite price", value)
		}
		if !(b.Volume >= 0) || math.IsInf(b.Volume, 0) {
			return nil, errors.NewValidationError(errors.ErrNegativeVolume,
				fmt.Sprintf("bars[%d].volume", i), "must be a non-negative finite volume", b.Volume)
		}
	}

	return bars, nil
}

func firstNonPositive(b market_data.Bar) (string, float64, bool) {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		// NaN fails the comparison too
		if !(f.value > 0) || math.IsInf(f.value, 0) {
			return f.name, f.value, false
		}
	}
	return "", 0, true
}
