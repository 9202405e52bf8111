package clients

import (
	"context"
	"fmt"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// TaskRouter is an nlp.Backend that delegates each task kind to its own
// backend, falling back to a default.
type TaskRouter struct {
	fallback  nlp.Backend
	overrides map[models.Task]nlp.Backend
}

func NewTaskRouter(fallback nlp.Backend) *TaskRouter {
	return &TaskRouter{fallback: fallback, overrides: make(map[models.Task]nlp.Backend)}
}

func (r *TaskRouter) Route(task models.Task, backend nlp.Backend) *TaskRouter {
	r.overrides[task] = backend
	return r
}

func (r *TaskRouter) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	if backend, ok := r.overrides[task]; ok {
		return backend.NewPipeline(ctx, task)
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("%w: no backend for %s", nlp.ErrUnsupportedTask, task)
	}
	return r.fallback.NewPipeline(ctx, task)
}
