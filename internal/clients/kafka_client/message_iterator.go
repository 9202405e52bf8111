package kafka_client

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

// MessageReader is the part of *kafka.Consumer the iterator needs.
type MessageReader interface {
	ReadMessage(timeout time.Duration) (*kafka.Message, error)
}

type KafkaMessageIterator struct {
	reader     MessageReader
	ctx        context.Context
	retryDelay time.Duration
}

func NewKafkaMessageIterator(ctx context.Context, reader MessageReader) *KafkaMessageIterator {
	return &KafkaMessageIterator{
		reader:     reader,
		ctx:        ctx,
		retryDelay: RETRY_DELAY,
	}
}

// Next blocks until a message arrives or the context is cancelled. Poll
// timeouts are not failures; other read errors are retried MAX_RETRIES times.
func (it *KafkaMessageIterator) Next() (*kafka.Message, error) {
	if it.reader == nil {
		return nil, errors.New("[KafkaIterator] Kafka consumer has not been initialized")
	}

	for attempt := 0; attempt < MAX_RETRIES; {
		if err := it.ctx.Err(); err != nil {
			slog.Warn("[KafkaIterator] Context cancelled, stopping iterator")
			return nil, err
		}

		msg, err := it.reader.ReadMessage(POLL_TIMEOUT)
		if err == nil {
			return msg, nil
		}

		var kafkaErr kafka.Error
		if errors.As(err, &kafkaErr) {
			switch kafkaErr.Code() {
			case kafka.ErrTimedOut:
				continue
			case kafka.ErrAllBrokersDown:
				slog.Error("[KafkaIterator] All Kafka brokers are down. Aborting")
				return nil, err
			}
		}

		attempt++
		slog.Warn("[KafkaIterator] Failed to read message, retrying...",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", MAX_RETRIES),
			slog.String("error", err.Error()))

		select {
		case <-it.ctx.Done():
			return nil, it.ctx.Err()
		case <-time.After(it.retryDelay):
		}
	}
	return nil, errors.New("[KafkaIterator] Failed to read message after retries")
}
