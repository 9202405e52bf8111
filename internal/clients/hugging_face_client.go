package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

type hfMode int

const (
	hfHosted hfMode = iota
	hfSelfHosted
)

// HuggingFaceClient talks to either the hosted Inference API
// (POST {base}/models/{model}) or a self-hosted analysis service
// (POST {base}/analyze/{task}). Both return JSON the normalizer understands.
type HuggingFaceClient struct {
	Client *http.Client

	mode           hfMode
	baseURL        string
	token          string
	models         map[models.Task]string
	maxRetries     int
	initialBackoff time.Duration
}

type HuggingFaceOption func(*HuggingFaceClient)

func WithHTTPClient(c *http.Client) HuggingFaceOption {
	return func(h *HuggingFaceClient) { h.Client = c }
}

func WithRetries(maxRetries int, initialBackoff time.Duration) HuggingFaceOption {
	return func(h *HuggingFaceClient) {
		h.maxRetries = maxRetries
		h.initialBackoff = initialBackoff
	}
}

func newHuggingFaceClient(mode hfMode, baseURL string, timeout time.Duration, opts ...HuggingFaceOption) *HuggingFaceClient {
	h := &HuggingFaceClient{
		Client:         &http.Client{Timeout: timeout},
		mode:           mode,
		baseURL:        strings.TrimRight(baseURL, "/"),
		maxRetries:     MAX_RETRIES,
		initialBackoff: INITIAL_BACKOFF,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func NewHostedClient(baseURL, token string, taskModels map[models.Task]string, timeout time.Duration, opts ...HuggingFaceOption) *HuggingFaceClient {
	h := newHuggingFaceClient(hfHosted, baseURL, timeout, opts...)
	h.token = token
	h.models = taskModels

	slog.Info("[HuggingFaceClient] Initializing hosted inference client",
		slog.String("base_url", h.baseURL),
		slog.Duration("timeout", timeout),
		slog.Bool("authenticated", token != ""))
	return h
}

func NewSelfHostedClient(baseURL string, timeout time.Duration, opts ...HuggingFaceOption) *HuggingFaceClient {
	h := newHuggingFaceClient(hfSelfHosted, baseURL, timeout, opts...)

	slog.Info("[HuggingFaceClient] Initializing self-hosted client",
		slog.String("base_url", h.baseURL),
		slog.Duration("timeout", timeout))
	return h
}

func (h *HuggingFaceClient) source() string {
	if h.mode == hfSelfHosted {
		return SOURCE_SELFHOSTED
	}
	return SOURCE_HOSTED
}

// NewPipeline satisfies nlp.Backend. Remote pipelines hold no state beyond
// the endpoint they post to.
func (h *HuggingFaceClient) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	endpoint, err := h.endpoint(task)
	if err != nil {
		return nil, err
	}
	slog.Info("[HuggingFaceClient] Pipeline bound",
		slog.String("task", task.String()),
		slog.String("endpoint", endpoint))

	return nlp.PipelineFunc(func(ctx context.Context, text string) (models.RawOutput, error) {
		return h.Infer(ctx, task, text)
	}), nil
}

func (h *HuggingFaceClient) endpoint(task models.Task) (string, error) {
	if !task.Valid() {
		return "", fmt.Errorf("%w: %q", nlp.ErrUnknownTask, task)
	}
	if h.mode == hfSelfHosted {
		return h.baseURL + "/analyze/" + task.String(), nil
	}
	model, ok := h.models[task]
	if !ok || model == "" {
		return "", fmt.Errorf("%w: no hosted model configured for %s", nlp.ErrUnsupportedTask, task)
	}
	return h.baseURL + "/models/" + model, nil
}

func (h *HuggingFaceClient) payload(task models.Task, text string) interface{} {
	if h.mode == hfSelfHosted {
		return models.TextRequest{Text: text}
	}

	req := models.InferenceRequest{
		Inputs:  text,
		Options: &models.InferenceOptions{WaitForModel: true, UseCache: true},
	}
	switch task {
	case models.TaskEmotion:
		req.Parameters = &models.InferenceParameters{TopK: EMOTION_TOP_K}
	case models.TaskSummary:
		doSample := false
		req.Parameters = &models.InferenceParameters{
			MaxLength: SUMMARY_MAX_LENGTH,
			MinLength: SUMMARY_MIN_LENGTH,
			DoSample:  &doSample,
		}
	}
	return req
}

// Infer runs one request and decodes the response into tagged raw output.
func (h *HuggingFaceClient) Infer(ctx context.Context, task models.Task, text string) (models.RawOutput, error) {
	endpoint, err := h.endpoint(task)
	if err != nil {
		return models.RawOutput{}, err
	}

	slog.Debug("[HuggingFaceClient] Requesting inference",
		slog.String("task", task.String()),
		slog.String("endpoint", endpoint))
	start := time.Now()

	body, err := h.postJSON(ctx, endpoint, h.payload(task, text))
	if err != nil {
		slog.Error("[HuggingFaceClient] Inference request failed",
			slog.String("task", task.String()),
			slog.Duration("elapsed", time.Since(start)))
		return models.RawOutput{}, err
	}

	raw, err := nlp.DecodeRawOutput(task, body)
	if err != nil {
		slog.Error("[HuggingFaceClient] Unexpected response shape",
			slog.String("task", task.String()),
			slog.String("error", err.Error()),
			getPreview(body))
		return models.RawOutput{}, err
	}
	raw.Source = h.source()

	slog.Info("[HuggingFaceClient] Inference request successful",
		slog.String("task", task.String()),
		slog.Duration("elapsed", time.Since(start)))
	return raw, nil
}

// Ping reports whether the service answers on its root endpoint.
func (h *HuggingFaceClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	h.setHeaders(req)

	resp, err := h.Client.Do(req)
	if err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("service unhealthy: status code %d", resp.StatusCode)
	}
	return nil
}

func (h *HuggingFaceClient) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", USER_AGENT)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

// DoWithRetry retries transport errors, 429 and 5xx responses with
// exponential backoff. The request body is rebuilt for every attempt.
func (h *HuggingFaceClient) DoWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.initialBackoff

	for attempt := 0; attempt < h.maxRetries; attempt++ {
		var req *http.Request
		req, err = build()
		if err != nil {
			return nil, err
		}

		resp, err = h.Client.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == h.maxRetries-1 {
			break
		}

		msg := errMsg(err, resp)
		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[HuggingFaceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", msg))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > MAX_BACKOFF {
			backoff = MAX_BACKOFF
		}
	}

	return resp, err
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (h *HuggingFaceClient) postJSON(ctx context.Context, endpoint string, input interface{}) ([]byte, error) {
	body, err := json.Marshal(input)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to marshal input",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to marshal input: %w", err)
	}

	resp, err := h.DoWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		h.setHeaders(req)
		return req, nil
	})
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to read response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func statusError(status int, body []byte) error {
	var apiErr models.InferenceError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		if apiErr.EstimatedTime > 0 {
			return fmt.Errorf("service returned status %d: %s (model loading, retry in ~%.0fs)", status, apiErr.Error, apiErr.EstimatedTime)
		}
		return fmt.Errorf("service returned status %d: %s", status, apiErr.Error)
	}

	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return fmt.Errorf("service returned status %d: %s", status, detail.Detail)
	}
	return fmt.Errorf("service returned status %d", status)
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
