package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/spacesedan/sentiscope/internal/models"
)

const (
	DEFAULT_CONCURRENCY = 4
	DEFAULT_QUEUE_SIZE  = 64
)

var ErrStopped = errors.New("worker stopped")

// Pool is an in-process background executor. It satisfies nlp.Transport:
// Send queues a request and the response is handed to the deliver callback
// from one of the pool's goroutines, usually Correlator.OnResponse.
type Pool struct {
	handler     *Handler
	deliver     func(models.Response)
	concurrency int
	queue       chan models.Request

	// mu guards closed; Send holds it shared while enqueueing so Run can
	// wait out in-flight sends before draining.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	stopped  chan struct{}
}

func NewPool(handler *Handler, deliver func(models.Response), concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = DEFAULT_CONCURRENCY
	}
	return &Pool{
		handler:     handler,
		deliver:     deliver,
		concurrency: concurrency,
		queue:       make(chan models.Request, DEFAULT_QUEUE_SIZE),
		stopped:     make(chan struct{}),
	}
}

func (p *Pool) Send(ctx context.Context, req models.Request) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrStopped
	}

	select {
	case p.queue <- req:
		return nil
	case <-p.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes queued requests until ctx is cancelled. Requests still queued
// at shutdown are answered with an error response.
func (p *Pool) Run(ctx context.Context) {
	slog.Info("[Worker] Starting worker pool", slog.Int("concurrency", p.concurrency))

	var wg sync.WaitGroup
	for i := 0; i < p.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case req := <-p.queue:
					p.deliver(p.handler.Handle(ctx, req))
				}
			}
		}()
	}

	<-ctx.Done()
	p.stopOnce.Do(func() { close(p.stopped) })
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	wg.Wait()

	for {
		select {
		case req := <-p.queue:
			p.deliver(errorResponse(req.ID, ErrStopped))
		default:
			slog.Warn("[Worker] Worker pool stopped")
			return
		}
	}
}
