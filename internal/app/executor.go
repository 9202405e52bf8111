package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client"
	"github.com/spacesedan/sentiscope/internal/clients/kafka_client/consumers"
	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spacesedan/sentiscope/internal/worker"
)

// Executor is the request path chosen by EXECUTION_MODE, optionally fronted
// by the valkey result cache.
type Executor struct {
	nlp.Executor
	Pingers map[string]monitoring.Pinger
	closers []func()
}

func (e *Executor) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// BuildExecutor wires the executor for cfg. Background goroutines it starts
// stop when ctx is cancelled; Close releases connections.
func BuildExecutor(ctx context.Context, cfg config.AppConfig, router *nlp.Router, m *metrics.Metrics) (*Executor, error) {
	e := &Executor{Pingers: make(map[string]monitoring.Pinger)}

	switch cfg.ExecutionMode {
	case config.ExecutionInProcess:
		e.Executor = nlp.NewInProcess(router)

	case config.ExecutionWorker:
		var correlator *nlp.Correlator
		pool := worker.NewPool(worker.NewHandler(router), func(r models.Response) { correlator.OnResponse(r) }, cfg.WorkerConcurrency)
		correlator = nlp.NewCorrelator(pool, nlp.WithTimeout(cfg.RequestTimeout), nlp.WithMetrics(m))
		go pool.Run(ctx)
		e.closers = append(e.closers, correlator.Close)
		e.Executor = correlator

	case config.ExecutionKafka:
		kcfg := kafka_client.GetKafkaConfig()
		producer, err := kafka_client.NewProducer(kcfg)
		if err != nil {
			return nil, err
		}
		correlator := nlp.NewCorrelator(
			kafka_client.NewRequestTransport(producer, kcfg.RequestTopic),
			nlp.WithTimeout(cfg.RequestTimeout),
			nlp.WithMetrics(m),
		)
		go func() {
			err := kafka_client.StartConsumer(ctx, kcfg, kcfg.ResponseGroupID(), "latest", kcfg.ResponseTopic,
				func(ctx context.Context, c kafka_client.Consumer) {
					consumers.StartResponseConsumer(ctx, c, correlator.OnResponse)
				})
			if err != nil {
				slog.Error("[App] Response consumer failed", slog.String("error", err.Error()))
			}
		}()
		e.closers = append(e.closers, producer.Close, correlator.Close)
		e.Executor = correlator

	default:
		return nil, fmt.Errorf("[App] unknown execution mode %q", cfg.ExecutionMode)
	}

	if cfg.ValkeyAddress != "" {
		cache, err := clients.NewValkeyClient(clients.ValkeyConfig{
			Address:  cfg.ValkeyAddress,
			Password: cfg.ValkeyPassword,
			UseTLS:   cfg.ValkeyTLS,
			TTL:      cfg.ResultCacheTTL,
			// results are only read through GET with a TTL, so client-side
			// tracking buys nothing
			DisableCache: true,
		})
		if err != nil {
			slog.Warn("[App] Result cache unavailable, continuing without it",
				slog.String("error", err.Error()))
		} else {
			e.closers = append(e.closers, cache.Close)
			e.Pingers["result_cache"] = cache
			e.Executor = nlp.NewCachedExecutor(e.Executor, cache, m)
		}
	}

	_, cached := e.Pingers["result_cache"]
	slog.Info("[App] Executor ready",
		slog.String("mode", cfg.ExecutionMode),
		slog.Bool("result_cache", cached))
	return e, nil
}
