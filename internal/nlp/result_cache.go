package nlp

import (
	"context"
	"log/slog"

	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
)

type ResultStore interface {
	Lookup(ctx context.Context, task models.Task, text string) (models.Result, bool, error)
	Store(ctx context.Context, task models.Task, text string, result models.Result) error
}

// CachedExecutor answers repeated (task, text) pairs from a ResultStore.
// Store failures degrade to uncached execution; degraded results are never
// stored.
type CachedExecutor struct {
	next    Executor
	store   ResultStore
	metrics *metrics.Metrics
}

func NewCachedExecutor(next Executor, store ResultStore, m *metrics.Metrics) *CachedExecutor {
	return &CachedExecutor{next: next, store: store, metrics: m}
}

func (c *CachedExecutor) Execute(ctx context.Context, task models.Task, text string) (models.Result, error) {
	if task.Valid() {
		cached, found, err := c.store.Lookup(ctx, task, text)
		if err != nil {
			slog.Warn("[ResultCache] Lookup failed",
				slog.String("task", task.String()),
				slog.String("error", err.Error()))
		}
		c.metrics.ObserveCacheLookup(task.String(), found)
		if found {
			return cached, nil
		}
	}

	result, err := c.next.Execute(ctx, task, text)
	if err != nil || result.Degraded {
		return result, err
	}

	if err := c.store.Store(ctx, task, text, result); err != nil {
		slog.Warn("[ResultCache] Store failed",
			slog.String("task", task.String()),
			slog.String("error", err.Error()))
	}
	return result, nil
}
