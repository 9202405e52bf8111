package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testModels = map[models.Task]string{
	models.TaskSentiment: "distilbert-sst2",
	models.TaskEmotion:   "emotion-roberta",
	models.TaskSummary:   "distilbart-cnn",
}

func TestHostedClient_Infer(t *testing.T) {
	t.Run("sentiment request and nested response", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models/distilbert-sst2", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req models.InferenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "I absolutely loved this movie!", req.Inputs)
			require.NotNil(t, req.Options)
			assert.True(t, req.Options.WaitForModel)

			_, _ = w.Write([]byte(`[[{"label":"POSITIVE","score":0.9998},{"label":"NEGATIVE","score":0.0002}]]`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "hf_test", testModels, 5*time.Second)
		raw, err := client.Infer(context.Background(), models.TaskSentiment, "I absolutely loved this movie!")
		require.NoError(t, err)
		assert.Equal(t, SOURCE_HOSTED, raw.Source)
		require.Len(t, raw.Classes, 2)
		assert.Equal(t, "POSITIVE", raw.Classes[0].Label)
	})

	t.Run("emotion asks for top five", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req models.InferenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Parameters)
			assert.Equal(t, EMOTION_TOP_K, req.Parameters.TopK)
			_, _ = w.Write([]byte(`[[{"label":"anger","score":0.93},{"label":"disgust","score":0.03}]]`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second)
		raw, err := client.Infer(context.Background(), models.TaskEmotion, "I am furious about this delay")
		require.NoError(t, err)
		assert.Equal(t, "anger", raw.Classes[0].Label)
	})

	t.Run("summary sends generation bounds", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req models.InferenceRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.NotNil(t, req.Parameters)
			assert.Equal(t, SUMMARY_MAX_LENGTH, req.Parameters.MaxLength)
			assert.Equal(t, SUMMARY_MIN_LENGTH, req.Parameters.MinLength)
			require.NotNil(t, req.Parameters.DoSample)
			assert.False(t, *req.Parameters.DoSample)
			_, _ = w.Write([]byte(`[{"summary_text":"short"}]`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second)
		raw, err := client.Infer(context.Background(), models.TaskSummary, "long text")
		require.NoError(t, err)
		require.NotNil(t, raw.Summary)
		assert.Equal(t, "short", *raw.Summary)
	})

	t.Run("retries 503 until the model is loaded", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":12.5}`))
				return
			}
			_, _ = w.Write([]byte(`[{"label":"NEGATIVE","score":0.7}]`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second, WithRetries(3, time.Millisecond))
		raw, err := client.Infer(context.Background(), models.TaskSentiment, "meh")
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())
		assert.Equal(t, "NEGATIVE", raw.Classes[0].Label)
	})

	t.Run("retries rate limited requests", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Rate limit reached"}`))
				return
			}
			_, _ = w.Write([]byte(`[{"label":"POSITIVE","score":0.8}]`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second, WithRetries(3, time.Millisecond))
		raw, err := client.Infer(context.Background(), models.TaskSentiment, "great")
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, "POSITIVE", raw.Classes[0].Label)
	})

	t.Run("gives up after retries with the service message", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"Model is currently loading","estimated_time":12.5}`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second, WithRetries(2, time.Millisecond))
		_, err := client.Infer(context.Background(), models.TaskSentiment, "meh")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
		assert.Contains(t, err.Error(), "currently loading")
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "bad", testModels, 5*time.Second, WithRetries(3, time.Millisecond))
		_, err := client.Infer(context.Background(), models.TaskSentiment, "text")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("malformed body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"generated_text":"nope"}`))
		}))
		defer server.Close()

		client := NewHostedClient(server.URL, "", testModels, 5*time.Second)
		_, err := client.Infer(context.Background(), models.TaskSummary, "text")
		assert.ErrorIs(t, err, nlp.ErrMalformedResult)
	})

	t.Run("task without a model", func(t *testing.T) {
		client := NewHostedClient("http://unused", "", map[models.Task]string{}, time.Second)
		_, err := client.NewPipeline(context.Background(), models.TaskSummary)
		assert.ErrorIs(t, err, nlp.ErrUnsupportedTask)
	})

	t.Run("connection error", func(t *testing.T) {
		client := NewHostedClient("http://localhost:99999", "", testModels, time.Second, WithRetries(1, time.Millisecond))
		_, err := client.Infer(context.Background(), models.TaskSentiment, "text")
		assert.Error(t, err)
	})
}

func TestSelfHostedClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			_ = json.NewEncoder(w).Encode(models.ServiceStatus{Status: "ok"})
		case "/analyze/sentiment":
			var req models.TextRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "great film", req.Text)
			_, _ = w.Write([]byte(`[{"label":"POSITIVE","score":0.8},{"label":"NEUTRAL","score":0.15},{"label":"NEGATIVE","score":0.05}]`))
		case "/analyze/summary":
			_ = json.NewEncoder(w).Encode(models.SummaryResponse{SummaryText: "brief"})
		case "/analyze/emotion":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"detail":"Emotion model not loaded"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewSelfHostedClient(server.URL, 5*time.Second, WithRetries(1, time.Millisecond))
	require.NoError(t, client.Ping(context.Background()))

	pipeline, err := client.NewPipeline(context.Background(), models.TaskSentiment)
	require.NoError(t, err)
	raw, err := pipeline.Run(context.Background(), "great film")
	require.NoError(t, err)
	assert.Equal(t, SOURCE_SELFHOSTED, raw.Source)
	assert.Len(t, raw.Classes, 3)

	res, err := nlp.Normalize(models.TaskSentiment, raw)
	require.NoError(t, err)
	assert.Len(t, res.Classes, 2)

	raw, err = client.Infer(context.Background(), models.TaskSummary, "long text")
	require.NoError(t, err)
	assert.Equal(t, "brief", *raw.Summary)

	_, err = client.Infer(context.Background(), models.TaskEmotion, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Emotion model not loaded")
}
