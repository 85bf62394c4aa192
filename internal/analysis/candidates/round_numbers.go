package candidates

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

type roundNumber struct {
	price     float64
	label     string
	intensity float64
}

// roundNumbers lists psychological price levels near price. The step is one
// order of magnitude below the price's leading digit, so 1234 walks in 100s
// and 0.0456 in 0.001s. Decimal arithmetic keeps 0.3 from turning into
// 0.30000000000000004.
//
// The grid is walked outward from price, nearest level first, so the work is
// bounded by MaxRoundNumbers however far the ATR reach extends. Equidistant
// levels resolve to the lower one.
func (b *Builder) roundNumbers(price, atr float64) []roundNumber {
	if price <= 0 || b.cfg.MaxRoundNumbers <= 0 {
		return nil
	}

	reach := math.Max(price*b.cfg.RoundNumberRangePct/100, atr*b.cfg.RoundNumberRangeATR)
	if !isFinite(price-reach) || !isFinite(price+reach) {
		return nil
	}

	exp := int32(math.Floor(math.Log10(price))) - 1
	step := decimal.New(1, exp)

	lo := decimal.NewFromFloat(price - reach)
	hi := decimal.NewFromFloat(price + reach)
	current := decimal.NewFromFloat(price)

	down := current.Div(step).Floor().Mul(step)
	up := down.Add(step)

	out := make([]roundNumber, 0, b.cfg.MaxRoundNumbers)
	for len(out) < b.cfg.MaxRoundNumbers {
		downOK := down.IsPositive() && down.GreaterThanOrEqual(lo)
		upOK := up.LessThanOrEqual(hi)

		var level decimal.Decimal
		switch {
		case downOK && upOK:
			if current.Sub(down).LessThanOrEqual(up.Sub(current)) {
				level, down = down, down.Sub(step)
			} else {
				level, up = up, up.Add(step)
			}
		case downOK:
			level, down = down, down.Sub(step)
		case upOK:
			level, up = up, up.Add(step)
		default:
			sort.Slice(out, func(i, j int) bool { return out[i].price < out[j].price })
			return out
		}

		out = append(out, b.roundNumberAt(level, exp))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].price < out[j].price })
	return out
}

func (b *Builder) roundNumberAt(level decimal.Decimal, exp int32) roundNumber {
	intensity := b.cfg.RoundMinorIntensity
	switch {
	case level.Mod(decimal.New(1, exp+1)).IsZero():
		intensity = b.cfg.RoundMajorIntensity
	case level.Mod(decimal.New(5, exp)).IsZero():
		intensity = b.cfg.RoundHalfIntensity
	}

	return roundNumber{
		price:     level.InexactFloat64(),
		label:     level.String(),
		intensity: intensity,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
