package consumers

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	pipeline "levelscope/internal/analysis"
	"levelscope/internal/domain/levels"
	"levelscope/internal/events"
	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
	"levelscope/pkg/reconnect"
)

// MessageReader yields messages of the request topic and commits them once handled
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Analyzer runs one analysis. Completed results are published by the analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*levels.ScoredAnalysis, error)
}

// FailurePublisher reports requests that produced no analysis
type FailurePublisher interface {
	PublishFailed(ctx context.Context, req events.AnalysisRequested, cause error) error
}

// AnalysisRequestConsumer turns analysis.requested events into analyses
type AnalysisRequestConsumer struct {
	reader    MessageReader
	analyzer  Analyzer
	publisher FailurePublisher
	limiter   *rate.Limiter
	backoff   *reconnect.Backoff
	log       *logger.Logger
}

// NewAnalysisRequestConsumer creates a consumer handling at most ratePerSec
// requests per second with the given burst
func NewAnalysisRequestConsumer(
	reader MessageReader,
	analyzer Analyzer,
	publisher FailurePublisher,
	ratePerSec float64,
	burst int,
	log *logger.Logger,
) *AnalysisRequestConsumer {
	limit := rate.Limit(ratePerSec)
	if ratePerSec <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &AnalysisRequestConsumer{
		reader:    reader,
		analyzer:  analyzer,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, burst),
		backoff: reconnect.NewBackoff(reconnect.Config{
			MinBackoff: 200 * time.Millisecond,
			MaxBackoff: 30 * time.Second,
		}),
		log: log.With("component", "analysis_request_consumer"),
	}
}

// Start consumes until ctx is cancelled
func (c *AnalysisRequestConsumer) Start(ctx context.Context) error {
	c.log.Info("Starting analysis request consumer...")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Analysis request consumer stopping (context cancelled)")
				return nil
			}
			c.log.Errorw("Failed to read analysis request",
				"error", err,
				"consecutive_failures", c.backoff.Failures()+1,
			)
			if !c.backoff.Wait(ctx) {
				return nil
			}
			continue
		}
		c.backoff.RecordSuccess()

		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "rate limiter")
		}

		if err := c.handleRequest(ctx, msg); err != nil {
			c.log.Errorw("Failed to handle analysis request",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warnw("Failed to commit offset", "offset", msg.Offset, "error", err)
		}
	}
}

// handleRequest processes a single request. Analysis failures are published,
// not returned; only a failed failure-publish is an error.
func (c *AnalysisRequestConsumer) handleRequest(ctx context.Context, msg kafkago.Message) error {
	var event events.AnalysisRequested
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		event.RequestID = string(msg.Key)
		cause := errors.Wrapf(errors.ErrInvalidInput, "decode analysis request: %v", err)
		return c.publishFailure(ctx, event, cause)
	}
	if event.RequestID == "" {
		event.RequestID = string(msg.Key)
	}

	c.log.Debugw("Processing analysis request",
		"request_id", event.RequestID,
		"symbol", event.Symbol,
		"interval", event.Interval,
		"bars", len(event.Bars),
	)

	reqCtx := errors.WithRequestID(ctx, event.RequestID)
	_, err := c.analyzer.Analyze(reqCtx, pipeline.Request{
		Symbol:   event.Symbol,
		Interval: event.Interval,
		Bars:     event.Bars,
		Now:      event.Now,
	})
	if err != nil {
		return c.publishFailure(reqCtx, event, err)
	}
	return nil
}

func (c *AnalysisRequestConsumer) publishFailure(ctx context.Context, event events.AnalysisRequested, cause error) error {
	c.log.Infow("Analysis request failed",
		"request_id", event.RequestID,
		"symbol", event.Symbol,
		"input_error", errors.IsInputError(cause),
		"error", cause,
	)
	if err := c.publisher.PublishFailed(ctx, event, cause); err != nil {
		return errors.Wrap(err, "publish failure")
	}
	return nil
}
