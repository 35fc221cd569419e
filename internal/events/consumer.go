package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/observability/metrics"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Workers int
}

// Consumer reads raw events from the input topic and hands each one to a
// Handler on a fixed pool of workers. A message is committed once handled.
type Consumer struct {
	reader  MessageReader
	handler *Handler
	workers int
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewConsumer creates a consumer group reader for cfg.Topic.
func NewConsumer(cfg *ConsumerConfig, handler *Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		Dialer:         newDialer(),
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})

	log := logging.WithComponent("consumer")
	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Str("groupId", cfg.GroupID).
		Int("workers", cfg.Workers).
		Msg("Kafka consumer initialized")

	return newConsumer(reader, handler, cfg.Workers)
}

func newConsumer(reader MessageReader, handler *Handler, workers int) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		reader:  reader,
		handler: handler,
		workers: workers,
		metrics: metrics.DefaultMetrics,
		logger:  logging.WithComponent("consumer"),
	}
}

// Run consumes until ctx is done or the reader fails.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	msgs := make(chan kafka.Message)

	g.Go(func() error {
		defer close(msgs)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.metrics.RecordConsumeError()
				return fmt.Errorf("fetch message: %w", err)
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return nil
			}
		}
	})

	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for msg := range msgs {
				c.process(ctx, msg)
			}
			return nil
		})
	}

	return g.Wait()
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	c.metrics.WorkersBusy.Inc()
	defer c.metrics.WorkersBusy.Dec()

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Error().
			Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Failed to route event, leaving uncommitted")
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordConsumeError()
		c.logger.Error().
			Err(err).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("Failed to commit message")
	}
}

// Close closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
