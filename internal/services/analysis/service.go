// Package analysis wraps the pipeline engine with caching, metrics and
// result publishing. Unexpected failures go to the logger's error tracker.
package analysis

import (
	"context"
	"time"

	pipeline "levelscope/internal/analysis"
	"levelscope/internal/domain/levels"
	"levelscope/internal/metrics"
	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
)

// ResultPublisher publishes finished analyses
type ResultPublisher interface {
	PublishCompleted(ctx context.Context, requestID string, analysis *levels.ScoredAnalysis) error
}

// Deps holds the service collaborators. Cache and Publisher are optional.
type Deps struct {
	Engine    *pipeline.Engine
	Cache     *Cache
	Publisher ResultPublisher
	Log       *logger.Logger
}

// Service runs analyses
type Service struct {
	engine      *pipeline.Engine
	cache       *Cache
	publisher   ResultPublisher
	fingerprint string
	log         *logger.Logger
}

// NewService creates a new analysis service
func NewService(deps Deps) (*Service, error) {
	if deps.Engine == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "analysis service: engine is required")
	}

	log := deps.Log
	if log == nil {
		log = logger.Get()
	}

	return &Service{
		engine:      deps.Engine,
		cache:       deps.Cache,
		publisher:   deps.Publisher,
		fingerprint: deps.Engine.Config().Fingerprint(),
		log:         log.With("component", "analysis_service"),
	}, nil
}

// Analyze returns the analysis of req, served from cache when possible.
// The request id, if any, is read from ctx (see errors.WithRequestID).
// Input errors satisfy errors.IsInputError.
func (s *Service) Analyze(ctx context.Context, req pipeline.Request) (*levels.ScoredAnalysis, error) {
	requestID, _ := errors.RequestIDFrom(ctx)
	log := s.log.With("symbol", req.Symbol, "interval", req.Interval, "bars", len(req.Bars))
	if requestID != "" {
		log = log.With("request_id", requestID)
	}

	key := CacheKey(req, s.fingerprint)

	if result, ok := s.lookup(ctx, key, log); ok {
		s.publish(ctx, requestID, result, log)
		return result, nil
	}

	start := time.Now()
	result, err := s.engine.Run(req)
	duration := time.Since(start)
	metrics.RecordAnalysis(req.Interval, duration, result, err)

	if err != nil {
		if errors.IsInputError(err) {
			log.Infow("Analysis rejected", "error", err)
			return nil, err
		}
		log.ErrorWithContext(ctx, errors.Wrap(err, "analysis failed"), map[string]string{
			"component": "analysis_service",
			"symbol":    req.Symbol,
			"interval":  req.Interval,
		})
		return nil, errors.Wrap(err, "run analysis")
	}

	log.Infow("Analysis complete",
		"support", len(result.Support),
		"resistance", len(result.Resistance),
		"confidence", result.Confidence.Score,
		"duration", duration,
	)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result); err != nil {
			log.Warnw("Failed to cache analysis", "error", err)
		}
	}

	s.publish(ctx, requestID, result, log)
	return result, nil
}

func (s *Service) lookup(ctx context.Context, key string, log *logger.Logger) (*levels.ScoredAnalysis, bool) {
	if s.cache == nil {
		return nil, false
	}

	result, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(metrics.CacheError)
		log.Warnw("Cache lookup failed", "error", err)
		return nil, false
	case !ok:
		metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}

	metrics.RecordCacheLookup(metrics.CacheHit)
	return result, true
}

func (s *Service) publish(ctx context.Context, requestID string, result *levels.ScoredAnalysis, log *logger.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCompleted(ctx, requestID, result); err != nil {
		log.Warnw("Failed to publish analysis", "error", err)
	}
}
