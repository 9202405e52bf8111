package nlp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
)

type Router struct {
	cache   *PipelineCache
	metrics *metrics.Metrics
}

func NewRouter(cache *PipelineCache, m *metrics.Metrics) *Router {
	return &Router{cache: cache, metrics: m}
}

// Dispatch runs text through the pipeline for task. Text is passed through
// untouched; filtering empty input is the caller's job.
func (r *Router) Dispatch(ctx context.Context, task models.Task, text string) (models.RawOutput, error) {
	if !task.Valid() {
		return models.RawOutput{}, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}

	pipeline, err := r.cache.Get(ctx, task)
	if err != nil {
		return models.RawOutput{}, backendErr(err)
	}

	start := time.Now()
	raw, err := pipeline.Run(ctx, text)
	r.metrics.ObserveInference(task.String(), time.Since(start))
	if err != nil {
		return models.RawOutput{}, backendErr(err)
	}
	if raw.Task == "" {
		raw.Task = task
	}
	return raw, nil
}

func (r *Router) Cache() *PipelineCache {
	return r.cache
}

// backendErr tags an error as a backend failure unless it already carries a
// classification the caller should see instead.
func backendErr(err error) error {
	switch {
	case errors.Is(err, ErrBackend),
		errors.Is(err, ErrUnknownTask),
		errors.Is(err, ErrMalformedResult),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrBackend, err)
	}
}
