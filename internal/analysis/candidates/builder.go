// Package candidates turns an IndicatorSet into raw level candidates, one
// per contributing signal, before any merging or scoring.
package candidates

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
)

// Builder assembles level candidates
type Builder struct {
	cfg tuning.Config
}

// NewBuilder creates a candidate builder
func NewBuilder(cfg tuning.Config) *Builder {
	return &Builder{cfg: cfg}
}

// Build emits candidates from swing points, dynamic EMA levels, Fibonacci
// levels, high-volume nodes and nearby round numbers. Every zone has the same
// volatility-scaled width.
func (b *Builder) Build(set *levels.IndicatorSet) []levels.CandidateLevel {
	width := b.ZoneWidth(set)
	out := make([]levels.CandidateLevel, 0, len(set.SwingPoints)+16)

	add := func(price float64, tag levels.FactorTag) {
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			return
		}
		out = append(out, levels.CandidateLevel{
			Price: price,
			Zone:  levels.ZoneAround(price, width),
			Side:  levels.SideOf(price, set.CurrentPrice),
			Tags:  []levels.FactorTag{tag},
		})
	}

	for _, p := range set.SwingPoints {
		kind := levels.FactorSwingLow
		if p.Kind == levels.SwingHigh {
			kind = levels.FactorSwingHigh
		}
		add(p.Price, levels.FactorTag{
			Kind:      kind,
			Label:     fmt.Sprintf("swing %s #%d", p.Kind, p.Index),
			Intensity: b.swingIntensity(p.Index, set.BarCount),
		})
	}

	for _, dl := range b.cfg.DynamicLevels {
		if v, ok := set.EMAValue(dl.Period); ok {
			add(v, levels.FactorTag{
				Kind:      levels.FactorDynamicMA,
				Label:     "EMA" + strconv.Itoa(dl.Period),
				Intensity: dl.Intensity,
			})
		}
	}

	if fib, ok := set.Fibonacci.Get(); ok {
		for _, l := range fib.Levels {
			add(l.Price, levels.FactorTag{
				Kind:      levels.FactorFibonacci,
				Label:     fmt.Sprintf("fib %.1f%%", l.Ratio*100),
				Intensity: b.fibIntensity(l.Ratio),
			})
		}
	}

	for _, node := range set.VolumeProfile.Nodes {
		add(node.Price, levels.FactorTag{
			Kind:      levels.FactorVolumeNode,
			Label:     "high volume node",
			Intensity: node.Intensity,
		})
	}

	for _, rn := range b.roundNumbers(set.CurrentPrice, set.ATR.Value) {
		add(rn.price, levels.FactorTag{
			Kind:      levels.FactorRoundNumber,
			Label:     "round " + rn.label,
			Intensity: rn.intensity,
		})
	}

	return out
}

// ZoneWidth is max(atr * factor, price * minPct/100)
func (b *Builder) ZoneWidth(set *levels.IndicatorSet) float64 {
	return math.Max(set.ATR.Value*b.cfg.ZoneWidthFactor, set.CurrentPrice*b.cfg.MinZoneWidthPct/100)
}

// swingIntensity grows linearly from the base for the first bar to 1 for the last
func (b *Builder) swingIntensity(index, barCount int) float64 {
	if barCount <= 1 {
		return 1
	}
	base := b.cfg.SwingBaseIntensity
	return base + (1-base)*float64(index)/float64(barCount-1)
}

func (b *Builder) fibIntensity(ratio float64) float64 {
	switch {
	case slices.Contains(b.cfg.FibKeyRatios, ratio):
		return b.cfg.FibKeyIntensity
	case slices.Contains(b.cfg.FibMinorRatios, ratio):
		return b.cfg.FibMinorIntensity
	default:
		return b.cfg.FibEdgeIntensity
	}
}
