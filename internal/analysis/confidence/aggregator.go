// Package confidence blends data sufficiency, trend clarity, level consensus
// and volatility into one auditable 0-100 score.
package confidence

import (
	"fmt"
	"math"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
)

// Factor names reported in the breakdown
const (
	FactorDataSufficiency = "data_sufficiency"
	FactorTrendClarity    = "trend_clarity"
	FactorLevelConsensus  = "level_consensus"
	FactorMissingLevels   = "missing_levels"
	FactorVolatility      = "volatility"
)

// Aggregator computes analysis confidence
type Aggregator struct {
	cfg tuning.Config
}

// NewAggregator creates a confidence aggregator
func NewAggregator(cfg tuning.Config) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate starts from the base score and adds one signed impact per factor.
// Every factor is reported, including those with zero impact.
func (a *Aggregator) Aggregate(set *levels.IndicatorSet, result levels.LevelSet) levels.Confidence {
	factors := []levels.ConfidenceFactor{
		a.dataSufficiency(set),
		a.trendClarity(set.Trend),
		a.levelConsensus(result),
		a.missingLevels(result),
		a.volatility(set.ATR),
	}

	score := a.cfg.ConfidenceBase
	for _, f := range factors {
		score += f.Impact
	}
	score = math.Max(0, math.Min(100, score))

	return levels.Confidence{
		Score:   score,
		Label:   a.label(score),
		Factors: factors,
	}
}

func (a *Aggregator) label(score float64) levels.ConfidenceLabel {
	switch {
	case score >= a.cfg.ConfidenceHighFrom:
		return levels.ConfidenceHigh
	case score >= a.cfg.ConfidenceMediumFrom:
		return levels.ConfidenceMedium
	default:
		return levels.ConfidenceLow
	}
}

// centered maps a [0,1] value to a signed impact in [-weight/2, +weight/2]
func centered(value, weight float64) float64 {
	return (value - 0.5) * weight
}

func (a *Aggregator) dataSufficiency(set *levels.IndicatorSet) levels.ConfidenceFactor {
	ideal := a.cfg.Profile(set.Interval).IdealBars
	value := 1.0
	if ideal > 0 {
		value = math.Min(1, float64(set.BarCount)/float64(ideal))
	}
	return levels.ConfidenceFactor{
		Name:   FactorDataSufficiency,
		Value:  value,
		Weight: a.cfg.SufficiencyWeight,
		Impact: centered(value, a.cfg.SufficiencyWeight),
		Note:   fmt.Sprintf("%d of %d ideal bars", set.BarCount, ideal),
	}
}

func (a *Aggregator) trendClarity(trend levels.Trend) levels.ConfidenceFactor {
	value := trend.Strength / 100
	return levels.ConfidenceFactor{
		Name:   FactorTrendClarity,
		Value:  value,
		Weight: a.cfg.TrendClarityWeight,
		Impact: centered(value, a.cfg.TrendClarityWeight),
		Note:   fmt.Sprintf("%s trend, strength %.0f", trend.Direction, trend.Strength),
	}
}

// levelConsensus averages the best score of each side; an empty side counts as 0
func (a *Aggregator) levelConsensus(result levels.LevelSet) levels.ConfidenceFactor {
	top := func(side []levels.ScoredLevel) float64 {
		if len(side) == 0 {
			return 0
		}
		return side[0].ConfluenceScore
	}
	topSupport, topResistance := top(result.Support), top(result.Resistance)
	value := (topSupport + topResistance) / 2 / 100

	return levels.ConfidenceFactor{
		Name:   FactorLevelConsensus,
		Value:  value,
		Weight: a.cfg.ConsensusWeight,
		Impact: centered(value, a.cfg.ConsensusWeight),
		Note:   fmt.Sprintf("top support %.0f, top resistance %.0f", topSupport, topResistance),
	}
}

func (a *Aggregator) missingLevels(result levels.LevelSet) levels.ConfidenceFactor {
	missing := 0
	note := "both sides have levels"
	switch {
	case len(result.Support) == 0 && len(result.Resistance) == 0:
		missing, note = 2, "no support or resistance levels"
	case len(result.Support) == 0:
		missing, note = 1, "no support levels"
	case len(result.Resistance) == 0:
		missing, note = 1, "no resistance levels"
	}

	return levels.ConfidenceFactor{
		Name:   FactorMissingLevels,
		Value:  float64(missing),
		Weight: a.cfg.MissingSidePenalty,
		Impact: -a.cfg.MissingSidePenalty * float64(missing),
		Note:   note,
	}
}

func (a *Aggregator) volatility(atr levels.ATR) levels.ConfidenceFactor {
	impact := 0.0
	switch atr.Regime {
	case levels.VolatilityMedium:
		impact = a.cfg.MediumVolatilityImpact
	case levels.VolatilityHigh:
		impact = a.cfg.HighVolatilityImpact
	case levels.VolatilityUnknown:
		impact = a.cfg.UnknownVolatilityImpact
	}

	return levels.ConfidenceFactor{
		Name:   FactorVolatility,
		Value:  atr.Percent.OrElse(0),
		Weight: math.Abs(impact),
		Impact: impact,
		Note:   fmt.Sprintf("%s volatility regime", atr.Regime),
	}
}
