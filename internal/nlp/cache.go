package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
	"golang.org/x/sync/singleflight"
)

// PipelineCache builds each task's pipeline once and keeps it for the life of
// the cache. Concurrent first callers share a single construction; a failed
// construction is not remembered, so the next caller tries again.
type PipelineCache struct {
	backend Backend
	metrics *metrics.Metrics

	mu        sync.RWMutex
	pipelines map[models.Task]Pipeline
	group     singleflight.Group
}

func NewPipelineCache(backend Backend, m *metrics.Metrics) *PipelineCache {
	return &PipelineCache{
		backend:   backend,
		metrics:   m,
		pipelines: make(map[models.Task]Pipeline, len(models.Tasks)),
	}
}

func (c *PipelineCache) lookup(task models.Task) (Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pipelines[task]
	return p, ok
}

func (c *PipelineCache) Get(ctx context.Context, task models.Task) (Pipeline, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	if p, ok := c.lookup(task); ok {
		return p, nil
	}

	// Joiners share this construction, so it must not die with the first
	// caller's ctx.
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(string(task), func() (interface{}, error) {
		if p, ok := c.lookup(task); ok {
			return p, nil
		}

		slog.Info("[PipelineCache] Initializing pipeline", slog.String("task", task.String()))
		start := time.Now()

		p, err := c.backend.NewPipeline(buildCtx, task)
		c.metrics.ObservePipelineInit(task.String(), err)
		if err != nil {
			slog.Error("[PipelineCache] Pipeline initialization failed",
				slog.String("task", task.String()),
				slog.String("error", err.Error()))
			return nil, err
		}

		c.mu.Lock()
		c.pipelines[task] = p
		c.mu.Unlock()

		slog.Info("[PipelineCache] Pipeline ready",
			slog.String("task", task.String()),
			slog.Duration("elapsed", time.Since(start)))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Pipeline), nil
}

func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// Warm constructs pipelines ahead of the first request. Failures are logged
// and left for lazy construction to retry.
func (c *PipelineCache) Warm(ctx context.Context, tasks ...models.Task) {
	for _, task := range tasks {
		if _, err := c.Get(ctx, task); err != nil {
			slog.Warn("[PipelineCache] Warm-up failed, will retry on first use",
				slog.String("task", task.String()),
				slog.String("error", err.Error()))
		}
	}
}
