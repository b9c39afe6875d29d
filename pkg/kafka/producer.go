// Package kafka publishes JSON records with segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/medmind/pkg/config"
	"github.com/segmentio/kafka-go"
)

const contentTypeJSON = "application/json"

// Event is one record. Key selects the partition; Value is encoded as JSON.
type Event struct {
	Key   string
	Value any
}

type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer writes to topic with leader-only acks; match analytics
// tolerate the occasional lost record.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           5 * time.Second,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Topic() string {
	return p.writer.Topic
}

// Publish encodes event and blocks until the broker acknowledges it.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Key, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Time:    time.Now().UTC(),
		Headers: []kafka.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}},
	})
	if err != nil {
		return fmt.Errorf("writing %s event to %s: %w", event.Key, p.writer.Topic, err)
	}
	p.logger.Debug("event published", "key", event.Key, "bytes", len(value))
	return nil
}

// Close flushes buffered messages and logs the writer's totals.
func (p *Producer) Close() error {
	err := p.writer.Close()
	stats := p.writer.Stats()
	p.logger.Info("producer closed", "messages", stats.Messages, "errors", stats.Errors)
	return err
}
