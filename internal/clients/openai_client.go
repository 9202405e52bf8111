package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
	summaryPrompt        = "Summarize the user's text in at most three sentences. Reply with the summary only."
)

// OpenAISummarizer serves the summary task through chat completions. Other
// tasks are left to the classification backends.
type OpenAISummarizer struct {
	Client *openai.Client
	model  string
}

func NewOpenAISummarizer(apiKey, model string, opts ...option.RequestOption) *OpenAISummarizer {
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: openAIRequestTimeout}),
	}
	client := openai.NewClient(append(base, opts...)...)

	slog.Info("[OpenAIClient] OpenAI summarizer initialized",
		slog.String("model", model),
		slog.Duration("timeout", openAIRequestTimeout))
	return &OpenAISummarizer{Client: client, model: model}
}

func (o *OpenAISummarizer) NewPipeline(ctx context.Context, task models.Task) (nlp.Pipeline, error) {
	if task != models.TaskSummary {
		return nil, fmt.Errorf("%w: openai backend only summarizes, got %s", nlp.ErrUnsupportedTask, task)
	}
	return nlp.PipelineFunc(o.Summarize), nil
}

func (o *OpenAISummarizer) Summarize(ctx context.Context, text string) (models.RawOutput, error) {
	start := time.Now()
	completion, err := o.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(text),
		}),
		Model:       openai.F(openai.ChatModel(o.model)),
		Temperature: openai.F(0.0),
	})
	if err != nil {
		slog.Error("[OpenAIClient] Summary request failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return models.RawOutput{}, fmt.Errorf("openai summary failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return models.RawOutput{}, fmt.Errorf("%w: completion has no choices", nlp.ErrMalformedResult)
	}

	summary := strings.TrimSpace(completion.Choices[0].Message.Content)
	slog.Info("[OpenAIClient] Summary request successful",
		slog.Duration("elapsed", time.Since(start)))

	raw := models.SummaryOutput(summary)
	raw.Source = SOURCE_OPENAI
	return raw, nil
}
