// Package confluence merges overlapping level candidates, scores each zone
// by the signals agreeing on it and ranks the result per side.
package confluence

import (
	"math"
	"sort"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
)

// Scorer turns candidates into ranked support and resistance levels
type Scorer struct {
	cfg tuning.Config
}

// NewScorer creates a confluence scorer
func NewScorer(cfg tuning.Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score merges, weights, classifies, splits, ranks and truncates.
// A side with no surviving level is an empty list, not an error.
func (s *Scorer) Score(cands []levels.CandidateLevel, set *levels.IndicatorSet) levels.LevelSet {
	current := set.CurrentPrice
	support := make([]levels.ScoredLevel, 0)
	resistance := make([]levels.ScoredLevel, 0)

	for _, c := range mergeCandidates(cands) {
		score, breakdown := s.scoreZone(c.zone, c.tags, set.Bars)
		if score < s.cfg.MinScore {
			continue
		}

		price := c.price()
		level := levels.ScoredLevel{
			Side:            levels.SideOf(price, current),
			Price:           price,
			Zone:            c.zone,
			ConfluenceScore: score,
			Strength:        s.classify(score),
			Breakdown:       breakdown,
		}
		if current > 0 {
			level.DistancePct = math.Abs(price-current) / current * 100
		}

		if level.Side == levels.SideSupport {
			support = append(support, level)
		} else {
			resistance = append(resistance, level)
		}
	}

	s.rank(support, set)
	s.rank(resistance, set)

	return levels.LevelSet{
		Support:           support,
		Resistance:        resistance,
		DisplaySupport:    s.display(support),
		DisplayResistance: s.display(resistance),
	}
}

func (s *Scorer) classify(score float64) levels.Strength {
	switch {
	case score >= s.cfg.StrongFrom:
		return levels.StrengthStrong
	case score >= s.cfg.MediumFrom:
		return levels.StrengthMedium
	default:
		return levels.StrengthWeak
	}
}

// rank orders by score desc, distance asc, price asc and fills rank, id and
// description
func (s *Scorer) rank(side []levels.ScoredLevel, set *levels.IndicatorSet) {
	sort.SliceStable(side, func(i, j int) bool {
		a, b := side[i], side[j]
		switch {
		case a.ConfluenceScore != b.ConfluenceScore:
			return a.ConfluenceScore > b.ConfluenceScore
		case a.DistancePct != b.DistancePct:
			return a.DistancePct < b.DistancePct
		default:
			return a.Price < b.Price
		}
	})

	for i := range side {
		side[i].Rank = i + 1
		side[i].ID = levelID(set.Symbol, set.Interval, side[i].Side, side[i].Price)
		side[i].Description = describe(side[i])
	}
}

func (s *Scorer) display(side []levels.ScoredLevel) []levels.ScoredLevel {
	n := min(len(side), s.cfg.DisplayLimit)
	out := make([]levels.ScoredLevel, n)
	copy(out, side[:n])
	return out
}
