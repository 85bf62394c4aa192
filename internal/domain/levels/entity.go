package levels

import (
	"time"
)

// Side of a level relative to the current price
type Side string

const (
	SideSupport    Side = "support"
	SideResistance Side = "resistance"
)

// SideOf classifies a price against the current price.
// A price exactly at the current price is resistance.
func SideOf(price, current float64) Side {
	if price < current {
		return SideSupport
	}
	return SideResistance
}

// Strength is the coarse classification of a confluence score
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthMedium Strength = "medium"
	StrengthWeak   Strength = "weak"
)

// SwingKind distinguishes pivot highs from pivot lows
type SwingKind string

const (
	SwingHigh SwingKind = "high"
	SwingLow  SwingKind = "low"
)

// SwingPoint is a local price extremum
type SwingPoint struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
	Kind  SwingKind `json:"kind"`
}

// Zone is a price band a level is considered valid within
type Zone struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ZoneAround returns a zone of the given width centered on price
func ZoneAround(price, width float64) Zone {
	half := width / 2
	return Zone{Low: price - half, High: price + half}
}

// Overlaps reports whether two zones share at least one price (bounds inclusive)
func (z Zone) Overlaps(other Zone) bool {
	return z.Low <= other.High && other.Low <= z.High
}

// Contains reports whether price lies inside the zone (bounds inclusive)
func (z Zone) Contains(price float64) bool {
	return price >= z.Low && price <= z.High
}

// Union returns the smallest zone covering both
func (z Zone) Union(other Zone) Zone {
	out := z
	if other.Low < out.Low {
		out.Low = other.Low
	}
	if other.High > out.High {
		out.High = other.High
	}
	return out
}

// Width returns High - Low
func (z Zone) Width() float64 {
	return z.High - z.Low
}

// FactorKind names a source of confluence
type FactorKind string

const (
	FactorTouches     FactorKind = "historical_touches"
	FactorSwingHigh   FactorKind = "swing_high"
	FactorSwingLow    FactorKind = "swing_low"
	FactorDynamicMA   FactorKind = "dynamic_ma"
	FactorFibonacci   FactorKind = "fibonacci"
	FactorVolumeNode  FactorKind = "volume_node"
	FactorRoundNumber FactorKind = "round_number"
)

// FactorTag is one contributing signal attached to a candidate.
// Intensity is in [0,1] and scales the factor's weight.
type FactorTag struct {
	Kind      FactorKind `json:"kind"`
	Label     string     `json:"label"`
	Intensity float64    `json:"intensity"`
}

// CandidateLevel is a raw level before merging and scoring
type CandidateLevel struct {
	Price float64     `json:"price"`
	Zone  Zone        `json:"zone"`
	Side  Side        `json:"side"`
	Tags  []FactorTag `json:"tags"`
}

// FactorContribution is one line of a level's score breakdown
type FactorContribution struct {
	Kind      FactorKind `json:"kind"`
	Label     string     `json:"label"`
	Intensity float64    `json:"intensity"`
	Weight    float64    `json:"weight"`
	Points    float64    `json:"points"` // contribution to the 0-100 score
}

// FactorBreakdown explains a confluence score
type FactorBreakdown struct {
	Touches int                  `json:"touches"`
	Factors []FactorContribution `json:"factors"`
}

// Has reports whether the breakdown contains a factor of the given kind
func (b FactorBreakdown) Has(kind FactorKind) bool {
	for _, f := range b.Factors {
		if f.Kind == kind {
			return true
		}
	}
	return false
}

// ScoredLevel is a merged, scored and ranked support or resistance level
type ScoredLevel struct {
	ID              string          `json:"id"`
	Rank            int             `json:"rank"`
	Side            Side            `json:"side"`
	Price           float64         `json:"price"`
	Zone            Zone            `json:"zone"`
	ConfluenceScore float64         `json:"confluence_score"`
	Strength        Strength        `json:"strength"`
	DistancePct     float64         `json:"distance_pct"`
	Breakdown       FactorBreakdown `json:"breakdown"`
	Description     string          `json:"description"`
}

// LevelSet is the scorer output: ranked levels per side, full and truncated
type LevelSet struct {
	Support           []ScoredLevel `json:"support"`
	Resistance        []ScoredLevel `json:"resistance"`
	DisplaySupport    []ScoredLevel `json:"display_support"`
	DisplayResistance []ScoredLevel `json:"display_resistance"`
}

// ConfidenceLabel is the coarse bucket of the overall confidence score
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "low"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceHigh   ConfidenceLabel = "high"
)

// ConfidenceFactor is one auditable input of the confidence score
type ConfidenceFactor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
	Impact float64 `json:"impact"` // signed points added to the base score
	Note   string  `json:"note"`
}

// Confidence is the aggregate trust score of an analysis
type Confidence struct {
	Score   float64            `json:"score"`
	Label   ConfidenceLabel    `json:"label"`
	Factors []ConfidenceFactor `json:"factors"`
}

// ScoredAnalysis is the full pipeline output
type ScoredAnalysis struct {
	Symbol            string        `json:"symbol"`
	Interval          string        `json:"interval"`
	GeneratedAt       time.Time     `json:"generated_at"`
	CurrentPrice      float64       `json:"current_price"`
	BarCount          int           `json:"bar_count"`
	Indicators        *IndicatorSet `json:"indicators"`
	Support           []ScoredLevel `json:"support"`
	Resistance        []ScoredLevel `json:"resistance"`
	DisplaySupport    []ScoredLevel `json:"display_support"`
	DisplayResistance []ScoredLevel `json:"display_resistance"`
	Confidence        Confidence    `json:"confidence"`
}
