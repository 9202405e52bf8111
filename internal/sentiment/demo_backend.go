package sentiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// DemoBackend answers every task from local heuristics: VADER for sentiment,
// a keyword lexicon for emotion and frequency-based extraction for summaries.
// It exists for offline demos only and tags all output with
// models.SourceDemo, so results come back Degraded.
type DemoBackend struct {
	vader *vaderScorer
}

func NewDemoBackend() *DemoBackend {
	slog.Warn("[DemoBackend] Demo mode enabled, results are heuristic and marked degraded")
	return &DemoBackend{vader: newVaderScorer()}
}

func (d *DemoBackend) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	var run func(text string) models.RawOutput
	switch task {
	case models.TaskSentiment:
		run = func(text string) models.RawOutput {
			return models.ClassesOutput(task, d.vader.Score(text))
		}
	case models.TaskEmotion:
		run = func(text string) models.RawOutput {
			return models.ClassesOutput(task, ScoreEmotions(text)...)
		}
	case models.TaskSummary:
		run = func(text string) models.RawOutput {
			return models.SummaryOutput(Summarize(text))
		}
	default:
		return nil, fmt.Errorf("%w: %q", nlp.ErrUnknownTask, task)
	}

	return nlp.PipelineFunc(func(ctx context.Context, text string) (models.RawOutput, error) {
		if err := ctx.Err(); err != nil {
			return models.RawOutput{}, err
		}
		raw := run(text)
		raw.Source = models.SourceDemo
		return raw, nil
	}), nil
}
