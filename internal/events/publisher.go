// Package events moves events between Kafka topics: it consumes raw events,
// validates them and publishes the outcome.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"

	"event-validation-service/internal/observability/metrics"
)

// Publisher publishes validation outcomes to separate Kafka topics for valid
// events and for reports on invalid ones.
type Publisher struct {
	writerValid   *kafka.Writer
	writerInvalid *kafka.Writer
	principal     string
	topicValid    string
	topicInvalid  string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicValid   string
	TopicInvalid string
	Principal    string
	Enabled      bool
}

// New creates a publisher. Without brokers, or when disabled, it only logs.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicValid:   cfg.TopicValid,
			topicInvalid: cfg.TopicInvalid,
			enabled:      false,
			metrics:      m,
		}
	}

	transport := &kafka.Transport{
		Dial: newDialer().DialFunc,
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicValid", cfg.TopicValid).
		Str("topicInvalid", cfg.TopicInvalid).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerValid:   newWriter(cfg.Brokers, cfg.TopicValid, transport),
		writerInvalid: newWriter(cfg.Brokers, cfg.TopicInvalid, transport),
		principal:     cfg.Principal,
		topicValid:    cfg.TopicValid,
		topicInvalid:  cfg.TopicInvalid,
		enabled:       true,
		metrics:       m,
	}
}

// newDialer uses long timeouts for DNS resolution in Kubernetes.
func newDialer() *kafka.Dialer {
	return &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

// PublishValid publishes an event that passed validation to the valid topic.
func (p *Publisher) PublishValid(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerValid, p.topicValid, "valid", key, event)
}

// PublishInvalid publishes a validation report to the invalid topic.
func (p *Publisher) PublishInvalid(ctx context.Context, key string, report any) error {
	return p.publish(ctx, p.writerInvalid, p.topicInvalid, "invalid", key, report)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, outcome, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, outcome, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "outcome", Value: []byte(outcome)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, outcome, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, outcome, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerValid != nil {
		err = multierr.Append(err, p.writerValid.Close())
	}
	if p.writerInvalid != nil {
		err = multierr.Append(err, p.writerInvalid.Close())
	}
	if err != nil {
		log.Error().Err(err).Msg("Error closing Kafka writers")
	}
	return err
}
