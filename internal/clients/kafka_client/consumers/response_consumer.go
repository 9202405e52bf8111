package consumers

import (
	"context"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client/utils"
	"github.com/spacesedan/sentiscope/internal/models"
)

// StartResponseConsumer feeds response envelopes to onResponse, normally
// Correlator.OnResponse. Responses for other gateways' requests are passed
// along too; the correlator discards ids it does not know.
func StartResponseConsumer(ctx context.Context, consumer kafka_client.Consumer, onResponse func(models.Response)) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[ResponseConsumer] Listening for analysis responses...")

	for {
		msg, err := iterator.Next()
		if err != nil {
			if ctx.Err() != nil {
				slog.Warn("[ResponseConsumer] Stopping consumer...")
				return
			}
			utils.HandleConsumerError(err)
			continue
		}

		var resp models.Response
		if err := utils.DeserializeFromJSON(msg.Value, &resp); err != nil {
			commit(committer, msg)
			continue
		}

		onResponse(resp)
		commit(committer, msg)
	}
}

func commit(committer *kafka_client.KafkaCommitHandler, msg *kafka.Message) {
	if err := committer.Commit(msg); err != nil {
		slog.Warn("[KafkaConsumer] Failed to commit offset",
			slog.String("error", err.Error()))
	}
}
