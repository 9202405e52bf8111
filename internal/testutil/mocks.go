package testutil

import (
	"context"
	"sync"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// MockBackend is a call-counting nlp.Backend. RunFunc answers pipeline runs;
// NewPipelineFunc, when set, replaces pipeline construction entirely.
type MockBackend struct {
	NewPipelineFunc func(ctx context.Context, task models.Task) (nlp.Pipeline, error)
	RunFunc         func(ctx context.Context, task models.Task, text string) (models.RawOutput, error)

	mu        sync.Mutex
	initCalls map[models.Task]int
	runCalls  map[models.Task]int
	LastText  string
}

func NewMockBackend() *MockBackend {
	return &MockBackend{
		initCalls: make(map[models.Task]int),
		runCalls:  make(map[models.Task]int),
	}
}

func (m *MockBackend) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	m.mu.Lock()
	m.initCalls[task]++
	m.mu.Unlock()

	if m.NewPipelineFunc != nil {
		return m.NewPipelineFunc(ctx, task)
	}
	return nlp.PipelineFunc(func(ctx context.Context, text string) (models.RawOutput, error) {
		m.mu.Lock()
		m.runCalls[task]++
		m.LastText = text
		m.mu.Unlock()

		if m.RunFunc != nil {
			return m.RunFunc(ctx, task, text)
		}
		return DefaultOutput(task), nil
	}), nil
}

func (m *MockBackend) InitCalls(task models.Task) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initCalls[task]
}

func (m *MockBackend) RunCalls(task models.Task) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCalls[task]
}

// DefaultOutput mimics the shapes real checkpoints return: a single winning
// sentiment label, an unsorted emotion list longer than five, and a wrapped
// summary.
func DefaultOutput(task models.Task) models.RawOutput {
	switch task {
	case models.TaskSentiment:
		return models.ClassesOutput(task, models.Classification{Label: "POSITIVE", Score: 0.98})
	case models.TaskEmotion:
		return models.ClassesOutput(task,
			models.Classification{Label: "neutral", Score: 0.05},
			models.Classification{Label: "anger", Score: 0.81},
			models.Classification{Label: "disgust", Score: 0.06},
			models.Classification{Label: "fear", Score: 0.02},
			models.Classification{Label: "joy", Score: 0.01},
			models.Classification{Label: "sadness", Score: 0.04},
			models.Classification{Label: "surprise", Score: 0.01},
		)
	default:
		return models.SummaryOutput("mock summary")
	}
}

// RecordingTransport captures requests instead of forwarding them.
type RecordingTransport struct {
	SendFunc func(ctx context.Context, req models.Request) error

	mu       sync.Mutex
	Requests []models.Request
}

func (t *RecordingTransport) Send(ctx context.Context, req models.Request) error {
	t.mu.Lock()
	t.Requests = append(t.Requests, req)
	t.mu.Unlock()

	if t.SendFunc != nil {
		return t.SendFunc(ctx, req)
	}
	return nil
}

func (t *RecordingTransport) Sent() []models.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Request(nil), t.Requests...)
}
