// Package analysis runs the support/resistance pipeline:
// validate, compute indicators, build candidates, score confluence and
// aggregate confidence. Run is a pure function of its request.
package analysis

import (
	"time"

	"levelscope/internal/analysis/candidates"
	"levelscope/internal/analysis/confidence"
	"levelscope/internal/analysis/confluence"
	"levelscope/internal/analysis/indicators"
	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
	"levelscope/internal/domain/market_data"
	"levelscope/pkg/errors"
)

// Request is one analysis invocation.
// Now is the reference time stamped on the result; zero means the time of
// the last bar. The engine never reads the wall clock.
type Request struct {
	Symbol   string            `json:"symbol"`
	Interval string            `json:"interval"`
	Bars     []market_data.Bar `json:"bars"`
	Now      time.Time         `json:"now,omitzero"`
}

// Engine wires the pipeline stages. It is immutable after construction and
// safe for concurrent use.
type Engine struct {
	cfg        tuning.Config
	indicators *indicators.Engine
	candidates *candidates.Builder
	scorer     *confluence.Scorer
	confidence *confidence.Aggregator
}

// NewEngine validates the tuning and builds the pipeline
func NewEngine(cfg tuning.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "analysis engine")
	}

	return &Engine{
		cfg:        cfg,
		indicators: indicators.NewEngine(cfg),
		candidates: candidates.NewBuilder(cfg),
		scorer:     confluence.NewScorer(cfg),
		confidence: confidence.NewAggregator(cfg),
	}, nil
}

// Config returns the tuning the engine was built with
func (e *Engine) Config() tuning.Config {
	return e.cfg
}

// Run executes the pipeline. Input problems fail with an error wrapping
// errors.ErrInvalidInput and no partial result.
func (e *Engine) Run(req Request) (*levels.ScoredAnalysis, error) {
	set, err := e.indicators.ComputeAll(req.Bars, req.Symbol, req.Interval)
	if err != nil {
		return nil, err
	}

	cands := e.candidates.Build(set)
	result := e.scorer.Score(cands, set)
	conf := e.confidence.Aggregate(set, result)

	generatedAt := req.Now
	if generatedAt.IsZero() {
		generatedAt = set.AsOf
	}

	return &levels.ScoredAnalysis{
		Symbol:            set.Symbol,
		Interval:          set.Interval,
		GeneratedAt:       generatedAt.UTC(),
		CurrentPrice:      set.CurrentPrice,
		BarCount:          set.BarCount,
		Indicators:        set,
		Support:           result.Support,
		Resistance:        result.Resistance,
		DisplaySupport:    result.DisplaySupport,
		DisplayResistance: result.DisplayResistance,
		Confidence:        conf,
	}, nil
}
