package confluence

import (
	"fmt"
	"math"

	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
)

// factorGroup is one weighted term of the score. Swing highs and lows share
// a term; the stronger tag counts.
type factorGroup struct {
	weight float64
	kinds  []levels.FactorKind
}

func (s *Scorer) factorGroups() []factorGroup {
	w := s.cfg.Weights
	return []factorGroup{
		{weight: w.Swing, kinds: []levels.FactorKind{levels.FactorSwingHigh, levels.FactorSwingLow}},
		{weight: w.Fibonacci, kinds: []levels.FactorKind{levels.FactorFibonacci}},
		{weight: w.VolumeNode, kinds: []levels.FactorKind{levels.FactorVolumeNode}},
		{weight: w.DynamicMA, kinds: []levels.FactorKind{levels.FactorDynamicMA}},
		{weight: w.RoundNumber, kinds: []levels.FactorKind{levels.FactorRoundNumber}},
	}
}

// countTouches counts bars whose low or high lies inside the zone
func countTouches(bars []market_data.Bar, zone levels.Zone) int {
	touches := 0
	for _, bar := range bars {
		if zone.Contains(bar.Low) || zone.Contains(bar.High) {
			touches++
		}
	}
	return touches
}

// touchFactor scales touches logarithmically, reaching 1 at saturation
func (s *Scorer) touchFactor(touches int) float64 {
	if touches <= 0 {
		return 0
	}
	f := math.Log1p(float64(touches)) / math.Log1p(float64(s.cfg.TouchSaturation))
	return math.Min(1, f)
}

// scoreZone computes the 0-100 confluence score of a zone and its breakdown.
// Widening the zone or raising any tag intensity never lowers the score.
func (s *Scorer) scoreZone(zone levels.Zone, tags map[levels.FactorKind]levels.FactorTag, bars []market_data.Bar) (float64, levels.FactorBreakdown) {
	total := s.cfg.Weights.Total()
	touches := countTouches(bars, zone)
	breakdown := levels.FactorBreakdown{
		Touches: touches,
		Factors: make([]levels.FactorContribution, 0, len(tags)+1),
	}
	if total <= 0 {
		return 0, breakdown
	}

	score := 0.0
	contribute := func(kind levels.FactorKind, label string, intensity, weight float64) {
		points := 100 * weight * intensity / total
		score += points
		breakdown.Factors = append(breakdown.Factors, levels.FactorContribution{
			Kind:      kind,
			Label:     label,
			Intensity: intensity,
			Weight:    weight,
			Points:    points,
		})
	}

	if touches > 0 {
		contribute(levels.FactorTouches, fmt.Sprintf("%d touches", touches), s.touchFactor(touches), s.cfg.Weights.Touches)
	}

	for _, group := range s.factorGroups() {
		var best levels.FactorTag
		found := false
		for _, kind := range group.kinds {
			tag, ok := tags[kind]
			if !ok {
				continue
			}
			if !found || tag.Intensity > best.Intensity {
				best, found = tag, true
			}
		}
		if found {
			contribute(best.Kind, best.Label, clamp(best.Intensity, 0, 1), group.weight)
		}
	}

	if math.IsNaN(score) {
		score = 0
	}
	return clamp(score, 0, 100), breakdown
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
