package nlp

import (
	"context"

	"github.com/spacesedan/sentiscope/internal/models"
)

// Pipeline turns text into raw task output. Implementations must be safe for
// concurrent use once constructed.
type Pipeline interface {
	Run(ctx context.Context, text string) (models.RawOutput, error)
}

// Backend constructs the pipeline for a task kind. Construction may be
// expensive (model download, session setup) and is memoized by PipelineCache.
type Backend interface {
	NewPipeline(ctx context.Context, task models.Task) (Pipeline, error)
}

type PipelineFunc func(ctx context.Context, text string) (models.RawOutput, error)

func (f PipelineFunc) Run(ctx context.Context, text string) (models.RawOutput, error) {
	return f(ctx, text)
}
