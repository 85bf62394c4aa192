package events

import (
	"context"

	"levelscope/internal/domain/levels"
	"levelscope/internal/metrics"
	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
)

// Producer writes one JSON-encoded event to a topic
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes analysis results
type Publisher struct {
	producer Producer
	topics   Topics
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, topics Topics, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topics:   topics,
		log:      log,
	}
}

// PublishCompleted publishes a finished analysis
func (p *Publisher) PublishCompleted(ctx context.Context, requestID string, analysis *levels.ScoredAnalysis) error {
	if analysis == nil {
		return errors.Wrap(errors.ErrInvalidInput, "publish completed: nil analysis")
	}

	event := AnalysisCompleted{
		RequestID: requestID,
		Analysis:  analysis,
	}
	return p.publish(ctx, p.topics.Completed, messageKey(analysis.Symbol, analysis.Interval), event)
}

// PublishFailed publishes a failed request
func (p *Publisher) PublishFailed(ctx context.Context, req AnalysisRequested, cause error) error {
	event := AnalysisFailed{
		RequestID:  req.RequestID,
		Symbol:     req.Symbol,
		Interval:   req.Interval,
		Error:      SanitizeUTF8(cause.Error()),
		InputError: errors.IsInputError(cause),
	}
	return p.publish(ctx, p.topics.Failed, messageKey(req.Symbol, req.Interval), event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordPublish(topic, err)
	if err != nil {
		p.log.Errorw("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published", "topic", topic, "key", key)
	return nil
}
