package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/app"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client/consumers"
	"github.com/spacesedan/sentiscope/internal/logging"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spacesedan/sentiscope/internal/worker"
)

// The worker consumes analysis requests from Kafka, runs them on the
// configured backend and publishes responses for the gateways.
func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	logging.InitLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := app.BuildBackends(cfg)
	if err != nil {
		slog.Error("[Main] Failed to build backends", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backends.Close()

	router := nlp.NewRouter(nlp.NewPipelineCache(backends.Backend, nil), nil)
	if cfg.WarmPipelines {
		router.Cache().Warm(ctx, models.Tasks...)
	}

	kcfg := kafka_client.GetKafkaConfig()

	var producer *kafka_client.Producer
	for {
		producer, err = kafka_client.NewProducer(kcfg)
		if err == nil {
			break
		}
		slog.Warn("[Main] Kafka init failed, retrying...", slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
	defer producer.Close()

	// Remote backends are polled so the worker stops pulling requests it
	// cannot serve; local and demo backends are always ready.
	var healthy func() bool
	if pinger, ok := backends.Pingers["inference"]; ok {
		monitor := monitoring.NewHealthMonitor("inference", pinger, monitoring.HEALTHCHECK_TIMER)
		monitor.Check(ctx)
		go monitor.Run(ctx)
		healthy = monitor.Healthy
	}

	handler := worker.NewHandler(router)
	err = kafka_client.StartConsumer(ctx, kcfg, kcfg.GroupID, "earliest", kcfg.RequestTopic,
		func(ctx context.Context, c kafka_client.Consumer) {
			consumers.StartRequestConsumer(ctx, c, handler, producer, kcfg.ResponseTopic, healthy)
		})
	if err != nil {
		slog.Error("[Main] Failed to start consumer", slog.String("error", err.Error()))
	}
}
