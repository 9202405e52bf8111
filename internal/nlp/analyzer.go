package nlp

import (
	"context"
	"log/slog"

	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
)

// Executor produces a normalized result for one request, either in-process or
// by round-tripping through a worker.
type Executor interface {
	Execute(ctx context.Context, task models.Task, text string) (models.Result, error)
}

// InProcess executes requests by dispatching through a Router and normalizing
// the output on the calling goroutine.
type InProcess struct {
	router *Router
}

func NewInProcess(router *Router) *InProcess {
	return &InProcess{router: router}
}

func (p *InProcess) Execute(ctx context.Context, task models.Task, text string) (models.Result, error) {
	raw, err := p.router.Dispatch(ctx, task, text)
	if err != nil {
		return models.Result{}, err
	}
	return Normalize(task, raw)
}

type Analyzer struct {
	exec    Executor
	metrics *metrics.Metrics
}

func NewAnalyzer(exec Executor, m *metrics.Metrics) *Analyzer {
	return &Analyzer{exec: exec, metrics: m}
}

func (a *Analyzer) Analyze(ctx context.Context, task models.Task, text string) (models.Result, error) {
	result, err := a.exec.Execute(ctx, task, text)
	a.metrics.ObserveRequest(task.String(), err)
	if err != nil {
		slog.Warn("[Analyzer] Analysis failed",
			slog.String("task", task.String()),
			slog.String("error", err.Error()))
		return models.Result{}, err
	}
	if result.Degraded {
		slog.Warn("[Analyzer] Returning degraded result",
			slog.String("task", task.String()),
			slog.String("source", result.Source))
	}
	return result, nil
}

func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) ([]models.Classification, error) {
	result, err := a.Analyze(ctx, models.TaskSentiment, text)
	if err != nil {
		return nil, err
	}
	return result.Classes, nil
}

func (a *Analyzer) DetectEmotion(ctx context.Context, text string) ([]models.Classification, error) {
	result, err := a.Analyze(ctx, models.TaskEmotion, text)
	if err != nil {
		return nil, err
	}
	return result.Classes, nil
}

func (a *Analyzer) SummarizeText(ctx context.Context, text string) (string, error) {
	result, err := a.Analyze(ctx, models.TaskSummary, text)
	if err != nil {
		return "", err
	}
	return result.Summary, nil
}
