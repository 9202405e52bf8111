package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spacesedan/sentiscope/internal/metrics"
	"github.com/spacesedan/sentiscope/internal/models"
)

const DefaultTimeout = 30 * time.Second

// Transport forwards a request to an out-of-process executor. Responses come
// back separately through Correlator.OnResponse.
type Transport interface {
	Send(ctx context.Context, req models.Request) error
}

type CorrelatorOption func(*Correlator)

// WithTimeout sets how long a request may stay pending. Zero disables the
// timeout.
func WithTimeout(d time.Duration) CorrelatorOption {
	return func(c *Correlator) { c.timeout = d }
}

func WithIDGenerator(fn func() string) CorrelatorOption {
	return func(c *Correlator) { c.newID = fn }
}

func WithMetrics(m *metrics.Metrics) CorrelatorOption {
	return func(c *Correlator) { c.metrics = m }
}

// Correlator pairs requests sent through a Transport with the responses that
// eventually arrive for them. Every request is settled exactly once: by its
// response, its timeout, its waiter giving up, or Close.
type Correlator struct {
	transport Transport
	timeout   time.Duration
	newID     func() string
	metrics   *metrics.Metrics

	mu      sync.Mutex
	pending map[string]*Future
	closed  bool
}

func NewCorrelator(transport Transport, opts ...CorrelatorOption) *Correlator {
	c := &Correlator{
		transport: transport,
		timeout:   DefaultTimeout,
		newID:     uuid.NewString,
		pending:   make(map[string]*Future),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Future struct {
	ID   string
	Task models.Task

	owner  *Correlator
	timer  *time.Timer
	done   chan struct{}
	result models.Result
	err    error
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the request settles or ctx ends. A waiter that gives up
// releases the pending entry; a response arriving afterwards is discarded.
func (f *Future) Wait(ctx context.Context) (models.Result, error) {
	select {
	case <-f.done:
	case <-ctx.Done():
		f.owner.settle(f.ID, models.Result{}, ctx.Err())
		<-f.done
	}
	return f.result, f.err
}

func (f *Future) resolve(result models.Result, err error) {
	f.result, f.err = result, err
	close(f.done)
}

func (c *Correlator) Submit(ctx context.Context, task models.Task, text string) (*Future, error) {
	if !task.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}

	id := c.newID()
	f := &Future{
		ID:    id,
		Task:  task,
		owner: c,
		done:  make(chan struct{}),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrCorrelatorClosed
	}
	if _, exists := c.pending[id]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("request id %q already pending", id)
	}
	if c.timeout > 0 {
		timeout := c.timeout
		f.timer = time.AfterFunc(timeout, func() {
			if c.settle(id, models.Result{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)) {
				slog.Warn("[Correlator] Request timed out",
					slog.String("id", id),
					slog.String("task", task.String()),
					slog.Duration("timeout", timeout))
			}
		})
	}
	c.pending[id] = f
	n := len(c.pending)
	c.mu.Unlock()
	c.metrics.SetPending(n)

	req := models.Request{ID: id, Task: task, Text: text}
	if err := c.transport.Send(ctx, req); err != nil {
		err = fmt.Errorf("%w: send request: %w", ErrBackend, err)
		c.settle(id, models.Result{}, err)
		return nil, err
	}
	return f, nil
}

// Execute submits a request and waits for its result.
func (c *Correlator) Execute(ctx context.Context, task models.Task, text string) (models.Result, error) {
	f, err := c.Submit(ctx, task, text)
	if err != nil {
		return models.Result{}, err
	}
	return f.Wait(ctx)
}

// OnResponse delivers a response to its waiter. Responses for ids that are
// not pending (late, duplicate or unknown) are dropped.
func (c *Correlator) OnResponse(resp models.Response) {
	f := c.take(resp.ID)
	if f == nil {
		c.metrics.IncDiscarded()
		slog.Debug("[Correlator] Discarding response without waiter",
			slog.String("id", resp.ID),
			slog.String("status", string(resp.Status)))
		return
	}

	switch resp.Status {
	case models.StatusComplete:
		raw, err := DecodeRawOutput(f.Task, resp.Result)
		if err != nil {
			f.resolve(models.Result{}, err)
			return
		}
		f.resolve(Normalize(f.Task, raw))
	case models.StatusError:
		msg := resp.Error
		if msg == "" {
			msg = "executor reported an error"
		}
		f.resolve(models.Result{}, fmt.Errorf("%w: %s", ErrBackend, msg))
	default:
		f.resolve(models.Result{}, malformed("unknown response status %q", resp.Status))
	}
}

func (c *Correlator) take(id string) *Future {
	c.mu.Lock()
	f, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		if f.timer != nil {
			f.timer.Stop()
		}
	}
	n := len(c.pending)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	c.metrics.SetPending(n)
	return f
}

func (c *Correlator) settle(id string, result models.Result, err error) bool {
	f := c.take(id)
	if f == nil {
		return false
	}
	f.resolve(result, err)
	return true
}

func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close fails every pending request and rejects new submissions.
func (c *Correlator) Close() {
	c.mu.Lock()
	c.closed = true
	pending := c.pending
	c.pending = make(map[string]*Future)
	c.mu.Unlock()
	c.metrics.SetPending(0)

	for _, f := range pending {
		if f.timer != nil {
			f.timer.Stop()
		}
		f.resolve(models.Result{}, ErrCorrelatorClosed)
	}
	if len(pending) > 0 {
		slog.Warn("[Correlator] Closed with pending requests", slog.Int("pending", len(pending)))
	}
}

func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
