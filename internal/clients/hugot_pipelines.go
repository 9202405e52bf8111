package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// LocalBackend runs ONNX text-classification models in-process through
// hugot. Summarization has no local pipeline; pair it with a remote summary
// backend via TaskRouter.
type LocalBackend struct {
	modelDir string
	models   map[models.Task]string

	once       sync.Once
	session    *hugot.Session
	sessionErr error
}

func NewLocalBackend(modelDir string, taskModels map[models.Task]string) *LocalBackend {
	return &LocalBackend{modelDir: modelDir, models: taskModels}
}

func (l *LocalBackend) getSession() (*hugot.Session, error) {
	l.once.Do(func() {
		session, err := hugot.NewGoSession()
		if err != nil {
			l.sessionErr = fmt.Errorf("failed to initialize hugot session: %w", err)
			return
		}
		l.session = session
		slog.Info("[LocalBackend] Hugot session initialized")
	})
	return l.session, l.sessionErr
}

func (l *LocalBackend) ensureModel(model string) (string, error) {
	if err := os.MkdirAll(l.modelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	modelPath := filepath.Join(l.modelDir, strings.ReplaceAll(model, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[LocalBackend] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	}

	slog.Info("[LocalBackend] Model not found, downloading...", slog.String("model", model))
	downloaded, err := hugot.DownloadModel(model, l.modelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", model, err)
	}
	slog.Info("[LocalBackend] Model downloaded successfully", slog.String("path", downloaded))
	return downloaded, nil
}

func (l *LocalBackend) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	if task == models.TaskSummary {
		return nil, fmt.Errorf("%w: local backend has no %s pipeline", nlp.ErrUnsupportedTask, task)
	}
	model, ok := l.models[task]
	if !ok || model == "" {
		return nil, fmt.Errorf("%w: no local model configured for %s", nlp.ErrUnsupportedTask, task)
	}

	session, err := l.getSession()
	if err != nil {
		return nil, err
	}
	modelPath, err := l.ensureModel(model)
	if err != nil {
		return nil, err
	}

	config := hugot.TextClassificationConfig{
		ModelPath: modelPath,
		Name:      task.String() + "Pipeline",
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s pipeline: %w", task, err)
	}

	return &localPipeline{task: task, pipeline: pipeline}, nil
}

func (l *LocalBackend) Close() {
	if l.session != nil {
		if err := l.session.Destroy(); err != nil {
			slog.Warn("[LocalBackend] Failed to destroy hugot session", slog.String("error", err.Error()))
		}
	}
}

type localPipeline struct {
	task     models.Task
	mu       sync.Mutex
	pipeline *pipelines.TextClassificationPipeline
}

func (p *localPipeline) Run(ctx context.Context, text string) (models.RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return models.RawOutput{}, err
	}

	p.mu.Lock()
	output, err := p.pipeline.RunPipeline([]string{text})
	p.mu.Unlock()
	if err != nil {
		return models.RawOutput{}, fmt.Errorf("%s pipeline failed: %w", p.task, err)
	}

	return classificationToRaw(p.task, output.GetOutput())
}

// classificationToRaw converts hugot's per-input output slice into tagged
// raw output. Each element is the label/score list for one input; only one
// input is ever sent.
func classificationToRaw(task models.Task, outputs []any) (models.RawOutput, error) {
	if len(outputs) == 0 {
		return models.RawOutput{}, fmt.Errorf("%w: empty pipeline output", nlp.ErrMalformedResult)
	}

	data, err := json.Marshal(outputs[0])
	if err != nil {
		return models.RawOutput{}, fmt.Errorf("%w: unexpected output format: %v", nlp.ErrMalformedResult, err)
	}

	raw, err := nlp.DecodeRawOutput(task, data)
	if err != nil {
		return models.RawOutput{}, err
	}
	raw.Source = SOURCE_LOCAL
	return raw, nil
}
