package indicators

import (
	"github.com/markcheno/go-talib"

	"levelscope/internal/domain/levels"
	"levelscope/pkg/optional"
)

// degenerateWidth is the band width, relative to the middle band, under
// which the bands are treated as collapsed
const degenerateWidth = 1e-12

func (e *Engine) computeBollinger(closes []float64, price float64) levels.Bollinger {
	period := e.cfg.BollingerPeriod
	out := levels.Bollinger{Period: period, PercentB: optional.None[float64]()}
	if len(closes) < period {
		return out
	}

	upperBand, middleBand, lowerBand := talib.BBands(closes, period, e.cfg.BollingerStdDev, e.cfg.BollingerStdDev, talib.SMA)

	last := len(closes) - 1
	out.Upper = upperBand[last]
	out.Middle = middleBand[last]
	out.Lower = lowerBand[last]

	// ta-lib computes variance as E[x^2]-E[x]^2, which may round below zero
	if out.Upper < out.Middle {
		out.Upper = out.Middle
	}
	if out.Lower > out.Middle {
		out.Lower = out.Middle
	}

	width := out.Upper - out.Lower
	if out.Middle > 0 {
		out.Bandwidth = width / out.Middle
	}
	if width > degenerateWidth*out.Middle {
		out.PercentB = optional.Some((price - out.Lower) / width)
	} else {
		out.Bandwidth = 0
	}

	// squeeze: current width well under its own recent average
	widths := make([]float64, 0, e.cfg.SqueezeLookback)
	for i := last; i >= period-1 && len(widths) < e.cfg.SqueezeLookback; i-- {
		if middleBand[i] <= 0 {
			continue
		}
		w := (upperBand[i] - lowerBand[i]) / middleBand[i]
		if w <= degenerateWidth {
			w = 0
		}
		widths = append(widths, w)
	}
	mean := 0.0
	for _, w := range widths {
		mean += w
	}
	if len(widths) > 0 {
		mean /= float64(len(widths))
	}
	out.Squeeze = mean > 0 && out.Bandwidth < e.cfg.SqueezeRatio*mean

	return out
}
