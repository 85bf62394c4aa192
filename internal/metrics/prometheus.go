package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"levelscope/internal/analysis/tuning"
	"levelscope/internal/domain/levels"
	"levelscope/pkg/errors"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusInvalid = "invalid" // rejected input
	StatusError   = "error"
)

// IntervalOther labels runs whose interval has no tuning profile
const IntervalOther = "other"

var knownIntervals = tuning.Default().Intervals

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	AnalysisRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelscope_analysis_runs_total",
			Help: "Total number of analysis runs",
		},
		[]string{"interval", "status"},
	)

	AnalysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "levelscope_analysis_duration_seconds",
			Help:    "Pipeline execution duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"interval"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelscope_cache_lookups_total",
			Help: "Analysis cache lookups by result",
		},
		[]string{"result"}, // hit|miss|error
	)

	LevelsProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelscope_levels_produced_total",
			Help: "Scored levels produced by side and strength",
		},
		[]string{"side", "strength"},
	)

	ConfidenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "levelscope_confidence_score",
			Help:    "Distribution of analysis confidence scores",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "levelscope_events_published_total",
			Help: "Events published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

var initOnce sync.Once

// Init registers all collectors with the default registry. Safe to call twice.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			AnalysisRuns,
			AnalysisDuration,
			CacheLookups,
			LevelsProduced,
			ConfidenceScore,
			EventsPublished,
		)
	})
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer serves /metrics on addr until ctx is cancelled
func StartServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(err, "metrics server on %s", addr)
	}
	return nil
}

// StatusOf maps a run error to its status label
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.IsInputError(err):
		return StatusInvalid
	default:
		return StatusError
	}
}

// IntervalLabel maps a request interval onto a bounded label set
func IntervalLabel(interval string) string {
	key := tuning.NormalizeInterval(interval)
	if _, ok := knownIntervals[key]; ok {
		return key
	}
	return IntervalOther
}

// RecordAnalysis records one pipeline run and, on success, what it produced
func RecordAnalysis(interval string, duration time.Duration, result *levels.ScoredAnalysis, err error) {
	label := IntervalLabel(interval)
	AnalysisRuns.WithLabelValues(label, StatusOf(err)).Inc()
	AnalysisDuration.WithLabelValues(label).Observe(duration.Seconds())

	if err != nil || result == nil {
		return
	}

	for _, lvl := range result.Support {
		LevelsProduced.WithLabelValues(string(lvl.Side), string(lvl.Strength)).Inc()
	}
	for _, lvl := range result.Resistance {
		LevelsProduced.WithLabelValues(string(lvl.Side), string(lvl.Strength)).Inc()
	}
	ConfidenceScore.Observe(result.Confidence.Score)
}

// RecordCacheLookup records one cache lookup result
func RecordCacheLookup(result string) {
	CacheLookups.WithLabelValues(result).Inc()
}

// RecordPublish records one event publish attempt
func RecordPublish(topic string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	EventsPublished.WithLabelValues(topic, status).Inc()
}
