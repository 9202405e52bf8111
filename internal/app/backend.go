package app

import (
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiscope/config"
	"github.com/spacesedan/sentiscope/internal/clients"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/monitoring"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spacesedan/sentiscope/internal/sentiment"
)

// Backends is the inference side of a process: the backend the pipeline
// cache draws from, plus whatever can be health-checked and must be closed.
type Backends struct {
	Backend nlp.Backend
	Pingers map[string]monitoring.Pinger
	closers []func()
}

func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func taskModels(cfg config.AppConfig) map[models.Task]string {
	return map[models.Task]string{
		models.TaskSentiment: cfg.Models.Sentiment,
		models.TaskEmotion:   cfg.Models.Emotion,
		models.TaskSummary:   cfg.Models.Summary,
	}
}

// BuildBackends selects the backend for BACKEND_MODE and, when
// SUMMARY_BACKEND=openai, routes summaries to OpenAI.
func BuildBackends(cfg config.AppConfig) (*Backends, error) {
	b := &Backends{Pingers: make(map[string]monitoring.Pinger)}

	var base nlp.Backend
	switch cfg.BackendMode {
	case config.BackendHosted:
		hf := clients.NewHostedClient(cfg.HFAPIURL, cfg.HFAPIToken, taskModels(cfg), cfg.RequestTimeout)
		b.Pingers["inference"] = hf
		base = hf
	case config.BackendSelfHosted:
		hf := clients.NewSelfHostedClient(cfg.SelfHostedURL, cfg.RequestTimeout)
		b.Pingers["inference"] = hf
		base = hf
	case config.BackendLocal:
		local := clients.NewLocalBackend(cfg.ModelDir, taskModels(cfg))
		b.closers = append(b.closers, local.Close)
		base = local
		if cfg.SummaryBackend != config.SummaryOpenAI {
			slog.Warn("[App] Local backend has no summarizer; summary requests will fail",
				slog.String("hint", "set SUMMARY_BACKEND=openai"))
		}
	case config.BackendDemo:
		base = sentiment.NewDemoBackend()
	default:
		return nil, fmt.Errorf("[App] unknown backend mode %q", cfg.BackendMode)
	}

	if cfg.SummaryBackend == config.SummaryOpenAI {
		router := clients.NewTaskRouter(base).
			Route(models.TaskSummary, clients.NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel))
		b.Backend = router
	} else {
		b.Backend = base
	}

	slog.Info("[App] Inference backend ready",
		slog.String("mode", cfg.BackendMode),
		slog.String("summary_backend", cfg.SummaryBackend))
	return b, nil
}
