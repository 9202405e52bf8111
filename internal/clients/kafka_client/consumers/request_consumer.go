package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/spacesedan/sentiscope/internal/clients/kafka_client"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client/utils"
	"github.com/spacesedan/sentiscope/internal/models"
)

type RequestHandler interface {
	Handle(ctx context.Context, req models.Request) models.Response
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// HEALTH_WAIT is how long the consumer idles while its backend is unhealthy.
const HEALTH_WAIT = 2 * time.Second

var publishRetryDelay = kafka_client.RETRY_DELAY

// StartRequestConsumer is the worker side of the Kafka transport: it runs
// each request envelope through handler and publishes the response envelope
// to responseTopic. An offset is committed only once its response is
// published, so a crash mid-request leads to redelivery rather than loss. A
// failed publish is retried until it succeeds or ctx ends; moving on would
// let the next commit cover the unanswered request.
// When healthy is non-nil, consumption pauses while it reports false.
func StartRequestConsumer(ctx context.Context, consumer kafka_client.Consumer, handler RequestHandler, publisher Publisher, responseTopic string, healthy func() bool) {
	iterator := kafka_client.NewKafkaMessageIterator(ctx, consumer)
	committer := kafka_client.NewCommitHandler(ctx, consumer)

	slog.Info("[RequestConsumer] Listening for analysis requests...")

	for {
		if healthy != nil && !healthy() {
			slog.Warn("[RequestConsumer] Backend unhealthy, pausing consumption")
			select {
			case <-ctx.Done():
				slog.Warn("[RequestConsumer] Stopping consumer...")
				return
			case <-time.After(HEALTH_WAIT):
			}
			continue
		}

		msg, err := iterator.Next()
		if err != nil {
			if ctx.Err() != nil {
				slog.Warn("[RequestConsumer] Stopping consumer...")
				return
			}
			utils.HandleConsumerError(err)
			continue
		}

		var req models.Request
		if err := utils.DeserializeFromJSON(msg.Value, &req); err != nil || req.ID == "" {
			slog.Warn("[RequestConsumer] Skipping unreadable request",
				slog.String("key", string(msg.Key)))
			commit(committer, msg)
			continue
		}

		resp := handler.Handle(ctx, req)
		if !publishResponse(ctx, publisher, responseTopic, resp) {
			slog.Warn("[RequestConsumer] Stopping consumer with response unpublished, offset left uncommitted",
				slog.String("id", req.ID))
			return
		}

		commit(committer, msg)
	}
}

// publishResponse retries until the response is published. It reports false
// only when ctx ends first.
func publishResponse(ctx context.Context, publisher Publisher, topic string, resp models.Response) bool {
	for attempt := 1; ; attempt++ {
		err := publisher.Publish(ctx, topic, resp.ID, resp)
		if err == nil {
			return true
		}
		slog.Error("[RequestConsumer] Failed to publish response, retrying",
			slog.String("id", resp.ID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return false
		case <-time.After(publishRetryDelay):
		}
	}
}
