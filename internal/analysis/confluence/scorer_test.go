package confluence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"levelscope/internal/analysis/candidates"
	"levelscope/internal/analysis/indicators"
	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/internal/testsupport"
)

func pipeline(t *testing.T, bars []market_data.Bar) ([]levels.CandidateLevel, *levels.IndicatorSet) {
	t.Helper()
	cfg := tuning.Default()
	set, err := indicators.NewEngine(cfg).ComputeAll(bars, "TEST", "1d")
	require.NoError(t, err)
	return candidates.NewBuilder(cfg).Build(set), set
}

func candidate(price, width float64, current float64, tags ...levels.FactorTag) levels.CandidateLevel {
	return levels.CandidateLevel{
		Price: price,
		Zone:  levels.ZoneAround(price, width),
		Side:  levels.SideOf(price, current),
		Tags:  tags,
	}
}

func tag(kind levels.FactorKind, intensity float64) levels.FactorTag {
	return levels.FactorTag{Kind: kind, Label: string(kind), Intensity: intensity}
}

func allLevels(ls levels.LevelSet) []levels.ScoredLevel {
	return append(append([]levels.ScoredLevel{}, ls.Support...), ls.Resistance...)
}

func TestScore_SupportAtRepeatedPullbacks(t *testing.T) {
	cands, set := pipeline(t, testsupport.RisingWithPullbacks())

	result := NewScorer(tuning.Default()).Score(cands, set)

	var found *levels.ScoredLevel
	for i := range result.Support {
		if result.Support[i].Zone.Contains(95) {
			found = &result.Support[i]
		}
	}
	require.NotNil(t, found, "expected a support zone covering 95")
	assert.InDelta(t, 95, found.Price, 0.5)
	assert.Contains(t, []levels.Strength{levels.StrengthMedium, levels.StrengthStrong}, found.Strength)
	assert.True(t, found.Breakdown.Has(levels.FactorTouches))
	assert.GreaterOrEqual(t, found.Breakdown.Touches, 3)
	assert.Contains(t, found.Description, "support at")
}

func TestScore_FibonacciLevelNearRetracement(t *testing.T) {
	cands, set := pipeline(t, testsupport.SwingHighThenLow())

	result := NewScorer(tuning.Default()).Score(cands, set)

	var found bool
	for _, l := range result.Resistance {
		if l.Zone.Contains(112.36) {
			found = true
			assert.True(t, l.Breakdown.Has(levels.FactorFibonacci))
		}
	}
	assert.True(t, found)
}

func TestScore_PropertiesAcrossSeries(t *testing.T) {
	series := map[string][]market_data.Bar{
		"flat":     testsupport.FlatBars(25, 100),
		"pullback": testsupport.RisingWithPullbacks(),
		"swing":    testsupport.SwingHighThenLow(),
		"zigzag":   testsupport.BarsFromCloses(testsupport.ZigZagCloses(80, 40, 60, 6), 0.8),
		"falling":  testsupport.BarsFromCloses(testsupport.LinearCloses(40, 200, 150), 1),
	}
	cfg := tuning.Default()

	for name, bars := range series {
		t.Run(name, func(t *testing.T) {
			cands, set := pipeline(t, bars)
			result := NewScorer(cfg).Score(cands, set)

			for _, l := range result.Support {
				assert.LessOrEqual(t, l.Price, set.CurrentPrice)
				assert.Equal(t, levels.SideSupport, l.Side)
			}
			for _, l := range result.Resistance {
				assert.GreaterOrEqual(t, l.Price, set.CurrentPrice)
				assert.Equal(t, levels.SideResistance, l.Side)
			}
			for _, l := range allLevels(result) {
				assert.GreaterOrEqual(t, l.ConfluenceScore, cfg.MinScore)
				assert.LessOrEqual(t, l.ConfluenceScore, 100.0)
				assert.False(t, math.IsNaN(l.ConfluenceScore))
				assert.LessOrEqual(t, l.Zone.Low, l.Price)
				assert.GreaterOrEqual(t, l.Zone.High, l.Price)
				assert.NotEmpty(t, l.ID)
			}

			assert.LessOrEqual(t, len(result.DisplaySupport), cfg.DisplayLimit)
			assert.LessOrEqual(t, len(result.DisplayResistance), cfg.DisplayLimit)
			assert.Equal(t, result.Support[:len(result.DisplaySupport)], result.DisplaySupport)
			assert.Equal(t, result.Resistance[:len(result.DisplayResistance)], result.DisplayResistance)
		})
	}
}

func TestScore_RankOrdering(t *testing.T) {
	cands, set := pipeline(t, testsupport.SwingHighThenLow())
	result := NewScorer(tuning.Default()).Score(cands, set)

	for _, side := range [][]levels.ScoredLevel{result.Support, result.Resistance} {
		for i := range side {
			assert.Equal(t, i+1, side[i].Rank)
			if i == 0 {
				continue
			}
			prev, cur := side[i-1], side[i]
			if prev.ConfluenceScore == cur.ConfluenceScore {
				assert.LessOrEqual(t, prev.DistancePct, cur.DistancePct)
			} else {
				assert.Greater(t, prev.ConfluenceScore, cur.ConfluenceScore)
			}
		}
	}
}

func TestScore_OrderIndependent(t *testing.T) {
	cands, set := pipeline(t, testsupport.RisingWithPullbacks())
	require.Greater(t, len(cands), 3)
	scorer := NewScorer(tuning.Default())
	want := scorer.Score(cands, set)

	permutations := [][]levels.CandidateLevel{reversed(cands)}
	for shift := 1; shift < len(cands); shift += 3 {
		permutations = append(permutations, rotated(cands, shift))
	}
	permutations = append(permutations, interleaved(cands))

	for i, perm := range permutations {
		assert.Equal(t, want, scorer.Score(perm, set), "permutation %d", i)
	}
}

func reversed(in []levels.CandidateLevel) []levels.CandidateLevel {
	out := make([]levels.CandidateLevel, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}

func rotated(in []levels.CandidateLevel, shift int) []levels.CandidateLevel {
	out := make([]levels.CandidateLevel, 0, len(in))
	out = append(out, in[shift:]...)
	return append(out, in[:shift]...)
}

func interleaved(in []levels.CandidateLevel) []levels.CandidateLevel {
	out := make([]levels.CandidateLevel, 0, len(in))
	for i := 0; i < len(in); i += 2 {
		out = append(out, in[i])
	}
	for i := 1; i < len(in); i += 2 {
		out = append(out, in[i])
	}
	return out
}

func TestMerge_MonotonicScore(t *testing.T) {
	scorer := NewScorer(tuning.Default())
	bars := testsupport.RisingWithPullbacks()

	tests := []struct {
		name string
		a, b levels.CandidateLevel
	}{
		{
			name: "swing and fib",
			a:    candidate(95, 0.6, 110, tag(levels.FactorSwingLow, 0.9)),
			b:    candidate(95.4, 0.6, 110, tag(levels.FactorFibonacci, 1)),
		},
		{
			name: "same kind keeps the stronger",
			a:    candidate(97, 0.8, 110, tag(levels.FactorVolumeNode, 0.3)),
			b:    candidate(97.5, 0.8, 110, tag(levels.FactorVolumeNode, 0.9)),
		},
		{
			name: "touching bounds",
			a:    candidate(99, 1, 110, tag(levels.FactorRoundNumber, 1)),
			b:    candidate(100, 1, 110, tag(levels.FactorDynamicMA, 0.7)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clusters := mergeCandidates([]levels.CandidateLevel{tt.a, tt.b})
			require.Len(t, clusters, 1)
			merged, _ := scorer.scoreZone(clusters[0].zone, clusters[0].tags, bars)

			for _, single := range []levels.CandidateLevel{tt.a, tt.b} {
				c := mergeCandidates([]levels.CandidateLevel{single})[0]
				alone, _ := scorer.scoreZone(c.zone, c.tags, bars)
				assert.GreaterOrEqual(t, merged, alone)
			}
		})
	}
}

func TestMerge_DisjointZonesStaySeparate(t *testing.T) {
	clusters := mergeCandidates([]levels.CandidateLevel{
		candidate(100, 1, 110, tag(levels.FactorSwingLow, 1)),
		candidate(102, 1, 110, tag(levels.FactorSwingLow, 1)),
		candidate(101, 1, 110, tag(levels.FactorFibonacci, 1)),
		candidate(108, 1, 110, tag(levels.FactorRoundNumber, 1)),
	})

	require.Len(t, clusters, 2, "100 and 102 are chained through 101")
	assert.InDelta(t, 101.0, clusters[0].price(), 1e-9)
	assert.Equal(t, levels.Zone{Low: 99.5, High: 102.5}, clusters[0].zone)
	assert.Len(t, clusters[0].tags, 2)
	assert.Equal(t, 108.0, clusters[1].price())
}

func TestScore_BoundaryPriceIsResistance(t *testing.T) {
	bars := testsupport.FlatBars(25, 100)
	set := &levels.IndicatorSet{Symbol: "TEST", Interval: "1d", CurrentPrice: 100, Bars: bars}

	result := NewScorer(tuning.Default()).Score([]levels.CandidateLevel{
		candidate(100, 0.05, 100, tag(levels.FactorRoundNumber, 1)),
	}, set)

	require.Len(t, result.Resistance, 1)
	assert.Empty(t, result.Support)
	assert.Equal(t, 100.0, result.Resistance[0].Price)
}

func TestScore_DropsBelowFloor(t *testing.T) {
	bars := testsupport.FlatBars(25, 100)
	set := &levels.IndicatorSet{Symbol: "TEST", Interval: "1d", CurrentPrice: 100, Bars: bars}

	// no bar reaches 120 and a minor round number alone scores 2
	result := NewScorer(tuning.Default()).Score([]levels.CandidateLevel{
		candidate(120, 0.5, 100, tag(levels.FactorRoundNumber, 0.4)),
	}, set)

	assert.Empty(t, result.Resistance)
	assert.NotNil(t, result.Resistance)
	assert.NotNil(t, result.DisplayResistance)
}

func TestScore_Empty(t *testing.T) {
	set := &levels.IndicatorSet{Symbol: "TEST", Interval: "1d", CurrentPrice: 100}

	result := NewScorer(tuning.Default()).Score(nil, set)

	assert.Empty(t, result.Support)
	assert.Empty(t, result.Resistance)
	assert.NotNil(t, result.Support)
	assert.NotNil(t, result.DisplaySupport)
}

func TestTouchFactor(t *testing.T) {
	s := NewScorer(tuning.Default())

	assert.Equal(t, 0.0, s.touchFactor(0))
	assert.InDelta(t, math.Log(2)/math.Log(6), s.touchFactor(1), 1e-12)
	assert.InDelta(t, 1.0, s.touchFactor(5), 1e-12)
	assert.Equal(t, 1.0, s.touchFactor(50))
	assert.Less(t, s.touchFactor(2)-s.touchFactor(1), s.touchFactor(1)-s.touchFactor(0), "diminishing returns")
}

func TestScoreZone_Breakdown(t *testing.T) {
	s := NewScorer(tuning.Default())
	bars := testsupport.FlatBars(25, 100)
	tags := map[levels.FactorKind]levels.FactorTag{
		levels.FactorSwingHigh: {Kind: levels.FactorSwingHigh, Label: "swing high", Intensity: 0.6},
		levels.FactorSwingLow:  {Kind: levels.FactorSwingLow, Label: "swing low", Intensity: 0.9},
		levels.FactorFibonacci: {Kind: levels.FactorFibonacci, Label: "fib 61.8%", Intensity: 1},
	}

	score, breakdown := s.scoreZone(levels.Zone{Low: 99.9, High: 100.1}, tags, bars)

	// 25 touches saturate: 40 + swing 15*0.9 + fib 15
	assert.InDelta(t, 68.5, score, 1e-9)
	assert.Equal(t, 25, breakdown.Touches)
	require.Len(t, breakdown.Factors, 3)
	assert.Equal(t, levels.FactorTouches, breakdown.Factors[0].Kind)
	assert.Equal(t, levels.FactorSwingLow, breakdown.Factors[1].Kind, "stronger swing tag counts")
	assert.False(t, breakdown.Has(levels.FactorSwingHigh))

	sum := 0.0
	for _, f := range breakdown.Factors {
		sum += f.Points
	}
	assert.InDelta(t, score, sum, 1e-9)
}

func TestLevelID_Deterministic(t *testing.T) {
	a := levelID("BTC", "1d", levels.SideSupport, 95.25)
	b := levelID("BTC", "1d", levels.SideSupport, 95.25)
	c := levelID("BTC", "1d", levels.SideResistance, 95.25)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}

func TestDescribe(t *testing.T) {
	desc := describe(levels.ScoredLevel{
		Side:     levels.SideSupport,
		Price:    12345.5,
		Zone:     levels.Zone{Low: 12300, High: 12400},
		Strength: levels.StrengthStrong,
		Breakdown: levels.FactorBreakdown{Factors: []levels.FactorContribution{
			{Label: "3 touches"}, {Label: "EMA21"},
		}},
	})

	assert.Equal(t, "Strong support at 12,345.5 (12,300 to 12,400): 3 touches, EMA21", desc)
}
