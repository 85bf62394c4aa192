package indicators

import (
	"levelscope/internal/analysis/swing"
	"levelscope/internal/domain/levels"
	"levelscope/pkg/optional"
)

// computeFibonacci draws retracement levels over the most recent swing leg
// large enough for the interval. After a down leg (high then low) ratios are
// measured up from the low; after an up leg they are measured down from the
// high.
func (e *Engine) computeFibonacci(points []levels.SwingPoint, price float64, interval string) optional.Value[levels.Fibonacci] {
	leg, ok := swing.SelectLeg(points, e.cfg.Profile(interval).FibMinMovePct)
	if !ok {
		return optional.None[levels.Fibonacci]()
	}

	high, low := leg.High.Price, leg.Low.Price
	span := high - low

	fib := levels.Fibonacci{
		Direction: leg.Direction,
		SwingHigh: leg.High,
		SwingLow:  leg.Low,
		Levels:    make([]levels.FibLevel, 0, len(e.cfg.FibRatios)),
	}

	for _, ratio := range e.cfg.FibRatios {
		fib.Levels = append(fib.Levels, levels.FibLevel{
			Ratio: ratio,
			Price: retracementPrice(leg.Direction, high, low, ratio),
		})
	}

	if leg.Direction == levels.LegDown {
		fib.CurrentRetracement = (price - low) / span
	} else {
		fib.CurrentRetracement = (high - price) / span
	}

	return optional.Some(fib)
}

func retracementPrice(direction levels.LegDirection, high, low, ratio float64) float64 {
	if direction == levels.LegDown {
		return low + ratio*(high-low)
	}
	return high - ratio*(high-low)
}
