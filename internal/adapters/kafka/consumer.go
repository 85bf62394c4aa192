package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"levelscope/pkg/errors"
	"levelscope/pkg/logger"
)

// Consumer reads one topic within a consumer group. Offsets are committed
// explicitly, so a message is redelivered if the process dies mid-handling.
type Consumer struct {
	reader *kafka.Reader
	log    *logger.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers  []string
	GroupID  string
	Topic    string
	MinBytes int
	MaxBytes int
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg ConsumerConfig) *Consumer {
	if cfg.MinBytes == 0 {
		cfg.MinBytes = 1
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = 10e6 // bar series can be large
	}

	log := logger.Get().With("component", "kafka_consumer", "topic", cfg.Topic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})

	log.Infow("Kafka consumer created",
		"brokers", cfg.Brokers,
		"group_id", cfg.GroupID,
	)

	return &Consumer{
		reader: reader,
		log:    log,
	}
}

// FetchMessage returns the next message without committing it.
// Once ctx is done it returns ctx.Err() rather than a transport error.
func (c *Consumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if err := ctx.Err(); err != nil {
		return kafka.Message{}, err
	}

	msg, err := c.reader.FetchMessage(ctx)
	switch {
	case ctx.Err() != nil:
		return kafka.Message{}, ctx.Err()
	case err != nil:
		return kafka.Message{}, errors.Wrap(err, "fetch message")
	}
	return msg, nil
}

// CommitMessages marks messages as handled for the group
func (c *Consumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "commit offsets")
	}
	return nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	stats := c.reader.Stats()
	c.log.Infow("Closing Kafka consumer",
		"messages", stats.Messages,
		"errors", stats.Errors,
		"lag", stats.Lag,
	)
	return c.reader.Close()
}
