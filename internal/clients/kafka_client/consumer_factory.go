package kafka_client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// Consumer is what consumer loops need from *kafka.Consumer.
type Consumer interface {
	MessageReader
	OffsetCommitter
}

type ConsumerFunc func(ctx context.Context, consumer Consumer)

// StartConsumer opens a consumer on topic, runs fn until it returns and then
// closes the consumer.
func StartConsumer(ctx context.Context, cfg KafkaConfig, groupID, offsetReset, topic string, fn ConsumerFunc) error {
	consumer, err := NewConsumer(cfg, groupID, offsetReset, topic)
	if err != nil {
		return fmt.Errorf("[ConsumerFactory] Failed to initialize Kafka consumer: %w", err)
	}
	defer closeConsumer(consumer)

	slog.Info("[ConsumerFactory] Starting consumer for topic...", slog.String("topic", topic))
	fn(ctx, consumer)
	return nil
}

func closeConsumer(c *kafka.Consumer) {
	start := time.Now()
	if err := c.Close(); err != nil {
		slog.Warn("[ConsumerFactory] Failed to close consumer cleanly",
			slog.String("error", err.Error()))
		return
	}
	slog.Info("[ConsumerFactory] Consumer closed", slog.Duration("took", time.Since(start)))
}
