package repository

import (
	"context"

	"FundSignal/internal/domain/models"
	pkgkafka "FundSignal/pkg/kafka"
)

// BatchPublisher is the part of the kafka producer used for signal fan-out.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaSignalPublisher publishes every record as a JSON message keyed by fund code.
type KafkaSignalPublisher struct {
	p     BatchPublisher
	topic string
}

func NewKafkaSignalPublisher(p BatchPublisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{p: p, topic: topic}
}

func (k *KafkaSignalPublisher) Name() string { return "kafka" }

func (k *KafkaSignalPublisher) Write(ctx context.Context, records []models.SignalRecord) error {
	msgs := make([]pkgkafka.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(r.Code), Value: r})
	}
	return k.p.PublishBatch(ctx, k.topic, msgs)
}

// Close is a no-op; the producer is shared with the log collector.
func (k *KafkaSignalPublisher) Close() error { return nil }
