package nlp_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/spacesedan/sentiscope/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func complete(t *testing.T, id string, raw any) models.Response {
	t.Helper()
	data, err := json.Marshal(raw)
	require.NoError(t, err)
	return models.Response{ID: id, Status: models.StatusComplete, Result: data}
}

func TestCorrelator_OutOfOrderResponsesReachTheirCallers(t *testing.T) {
	transport := &testutil.RecordingTransport{}
	c := nlp.NewCorrelator(transport)
	defer c.Close()

	first, err := c.Submit(context.Background(), models.TaskSummary, "first text")
	require.NoError(t, err)
	second, err := c.Submit(context.Background(), models.TaskSummary, "second text")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	sent := transport.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, models.Request{ID: first.ID, Task: models.TaskSummary, Text: "first text"}, sent[0])

	c.OnResponse(complete(t, second.ID, []map[string]string{{"summary_text": "second"}}))
	c.OnResponse(complete(t, first.ID, []map[string]string{{"summary_text": "first"}}))

	res, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second", res.Summary)

	res, err = first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", res.Summary)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_NormalizesCompletedPayload(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskSentiment, "I absolutely loved this movie!")
	require.NoError(t, err)
	c.OnResponse(complete(t, f.ID, []map[string]any{{"label": "POSITIVE", "score": 0.95}}))

	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Classes, 2)
	assert.Equal(t, "POSITIVE", res.Classes[0].Label)
	assert.Equal(t, "NEGATIVE", res.Classes[1].Label)
	assert.InDelta(t, 0.05, res.Classes[1].Score, 1e-9)
}

func TestCorrelator_UnknownResponseIsDiscarded(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskEmotion, "text")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		c.OnResponse(complete(t, "no-such-id", []map[string]any{{"label": "joy", "score": 1}}))
		c.OnResponse(models.Response{ID: "", Status: models.StatusError, Error: "whatever"})
	})
	assert.Equal(t, 1, c.Pending())

	select {
	case <-f.Done():
		t.Fatal("pending request settled by an unrelated response")
	default:
	}
}

func TestCorrelator_DuplicateResponseDeliveredOnce(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskSummary, "text")
	require.NoError(t, err)

	c.OnResponse(complete(t, f.ID, map[string]string{"summary_text": "one"}))
	c.OnResponse(complete(t, f.ID, map[string]string{"summary_text": "two"}))

	res, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "one", res.Summary)
}

func TestCorrelator_ErrorResponseRejectsWaiter(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskEmotion, "text")
	require.NoError(t, err)
	c.OnResponse(models.Response{ID: f.ID, Status: models.StatusError, Error: "model not loaded"})

	res, err := f.Wait(context.Background())
	assert.ErrorIs(t, err, nlp.ErrBackend)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Empty(t, res.Classes)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_MalformedPayloadRejectsWaiter(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskSentiment, "text")
	require.NoError(t, err)
	c.OnResponse(complete(t, f.ID, map[string]string{"unexpected": "shape"}))

	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, nlp.ErrMalformedResult)

	g, err := c.Submit(context.Background(), models.TaskSentiment, "text")
	require.NoError(t, err)
	c.OnResponse(models.Response{ID: g.ID, Status: "exploded"})
	_, err = g.Wait(context.Background())
	assert.ErrorIs(t, err, nlp.ErrMalformedResult)
}

func TestCorrelator_Timeout(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{}, nlp.WithTimeout(20*time.Millisecond))
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskSummary, "text")
	require.NoError(t, err)

	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, nlp.ErrTimeout)
	assert.True(t, nlp.IsTimeout(err))
	assert.Equal(t, 0, c.Pending())

	// A response arriving after the timeout is dropped quietly.
	assert.NotPanics(t, func() {
		c.OnResponse(complete(t, f.ID, map[string]string{"summary_text": "late"}))
	})
}

func TestCorrelator_WaitCancellationReleasesEntry(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{}, nlp.WithTimeout(0))
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskEmotion, "text")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_SendFailure(t *testing.T) {
	cause := errors.New("broker unavailable")
	transport := &testutil.RecordingTransport{
		SendFunc: func(ctx context.Context, req models.Request) error { return cause },
	}
	c := nlp.NewCorrelator(transport)
	defer c.Close()

	f, err := c.Submit(context.Background(), models.TaskSentiment, "text")
	assert.Nil(t, f)
	assert.ErrorIs(t, err, nlp.ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelator_UnknownTaskIsNotForwarded(t *testing.T) {
	transport := &testutil.RecordingTransport{}
	c := nlp.NewCorrelator(transport)
	defer c.Close()

	_, err := c.Submit(context.Background(), models.Task("translate"), "text")
	assert.ErrorIs(t, err, nlp.ErrUnknownTask)
	assert.Empty(t, transport.Sent())
}

func TestCorrelator_Close(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{})

	f, err := c.Submit(context.Background(), models.TaskSummary, "text")
	require.NoError(t, err)

	c.Close()
	_, err = f.Wait(context.Background())
	assert.ErrorIs(t, err, nlp.ErrCorrelatorClosed)

	_, err = c.Submit(context.Background(), models.TaskSummary, "text")
	assert.ErrorIs(t, err, nlp.ErrCorrelatorClosed)
}

func TestCorrelator_IDsAreUnique(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{}, nlp.WithTimeout(0))
	defer c.Close()

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		f, err := c.Submit(context.Background(), models.TaskSentiment, "text")
		require.NoError(t, err)
		_, dup := seen[f.ID]
		require.False(t, dup, "duplicate id %s", f.ID)
		seen[f.ID] = struct{}{}
	}
	assert.Equal(t, 500, c.Pending())
}

func TestCorrelator_RejectsCollidingIDs(t *testing.T) {
	c := nlp.NewCorrelator(&testutil.RecordingTransport{}, nlp.WithIDGenerator(func() string { return "fixed" }))
	defer c.Close()

	_, err := c.Submit(context.Background(), models.TaskSentiment, "a")
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), models.TaskSentiment, "b")
	assert.Error(t, err)
	assert.Equal(t, 1, c.Pending())
}
