package utils

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

func DeserializeFromJSON(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err != nil {
		slog.Warn("[KafkaUtils] Failed to deserialize JSON",
			slog.String("error", err.Error()))
	}
	return err
}

// HandleConsumerError logs err unless it is the consumer's own shutdown.
func HandleConsumerError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	slog.Error("[KafkaUtils] Kafka Consumer Error",
		slog.String("error", err.Error()))
}
