package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/app"
	"github.com/spacesedan/sentiscope/internal/logging"
	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spacesedan/sentiscope/internal/server"
)

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
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	backends, err := app.BuildBackends(cfg)
	if err != nil {
		slog.Error("[Main] Failed to build backends", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backends.Close()

	router := nlp.NewRouter(nlp.NewPipelineCache(backends.Backend, m), m)
	if cfg.WarmPipelines && cfg.ExecutionMode != config.ExecutionKafka {
		go router.Cache().Warm(ctx, models.Tasks...)
	}

	exec, err := app.BuildExecutor(ctx, cfg, router, m)
	if err != nil {
		slog.Error("[Main] Failed to build executor", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer exec.Close()

	health := monitoring.NewHealth()
	for name, p := range backends.Pingers {
		health.Add(monitoring.NewHealthMonitor(name, p, monitoring.HEALTHCHECK_TIMER))
	}
	for name, p := range exec.Pingers {
		health.Add(monitoring.NewHealthMonitor(name, p, monitoring.HEALTHCHECK_TIMER))
	}
	health.Start(ctx)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Options{
			Analyzer:    nlp.NewAnalyzer(exec, m),
			Health:      health,
			Gatherer:    reg,
			CORSOrigins: cfg.CORSOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("[Main] Starting HTTP server",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("env", cfg.Env),
			slog.String("backend", cfg.BackendMode),
			slog.String("execution", cfg.ExecutionMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] HTTP server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Main] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("[Main] Server forced to shutdown", slog.String("error", err.Error()))
	}
	slog.Info("[Main] Server exited")
}
