package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendHosted     = "hosted"
	BackendSelfHosted = "selfhosted"
	BackendLocal      = "local"
	BackendDemo       = "demo"

	SummaryDefault = "default"
	SummaryOpenAI  = "openai"

	ExecutionInProcess = "inprocess"
	ExecutionWorker    = "worker"
	ExecutionKafka     = "kafka"
)

type AppConfig struct {
	Env      string
	LogLevel string
	HTTPAddr string

	BackendMode    string
	SummaryBackend string
	Models         ModelConfig

	HFAPIURL      string
	HFAPIToken    string
	SelfHostedURL string
	ModelDir      string

	OpenAIAPIKey string
	OpenAIModel  string

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
	ResultCacheTTL time.Duration

	ExecutionMode     string
	WorkerConcurrency int
	RequestTimeout    time.Duration
	WarmPipelines     bool

	CORSOrigins []string
}

type ModelConfig struct {
	Sentiment string
	Emotion   string
	Summary   string
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("[Config] Invalid duration, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Duration("default", defaultValue))
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("[Config] Invalid integer, using default",
			slog.String("key", key),
			slog.String("value", raw),
			slog.Int("default", defaultValue))
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load reads the application configuration from the environment. Call
// LoadEnv first to pull in the per-environment .env file.
func Load() (AppConfig, error) {
	env := getEnv("APP_ENV", "dev")

	// Hosted model calls get a short leash in production, as in the
	// original client defaults.
	defaultTimeout := 30 * time.Second
	if env == "production" {
		defaultTimeout = 10 * time.Second
	}

	cfg := AppConfig{
		Env:            env,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		BackendMode:    strings.ToLower(getEnv("BACKEND_MODE", BackendHosted)),
		SummaryBackend: strings.ToLower(getEnv("SUMMARY_BACKEND", SummaryDefault)),
		Models: ModelConfig{
			Sentiment: getEnv("SENTIMENT_MODEL", "distilbert/distilbert-base-uncased-finetuned-sst-2-english"),
			Emotion:   getEnv("EMOTION_MODEL", "j-hartmann/emotion-english-distilroberta-base"),
			Summary:   getEnv("SUMMARY_MODEL", "sshleifer/distilbart-cnn-12-6"),
		},
		HFAPIURL:          getEnv("HF_API_URL", "https://api-inference.huggingface.co"),
		HFAPIToken:        getEnv("HF_API_TOKEN", ""),
		SelfHostedURL:     getEnv("SELFHOSTED_URL", "http://localhost:8001"),
		ModelDir:          getEnv("MODEL_DIR", "./models"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ValkeyAddress:     getEnv("VALKEY_INIT_ADDRESS", ""),
		ValkeyPassword:    getEnv("VALKEY_PASSWORD", ""),
		ValkeyTLS:         getEnv("VALKEY_TLS", "false") == "true",
		ResultCacheTTL:    getDuration("RESULT_CACHE_TTL", time.Hour),
		ExecutionMode:     strings.ToLower(getEnv("EXECUTION_MODE", ExecutionInProcess)),
		WorkerConcurrency: getInt("WORKER_CONCURRENCY", 4),
		RequestTimeout:    getDuration("CORRELATOR_TIMEOUT", defaultTimeout),
		WarmPipelines:     getEnv("WARM_PIPELINES", "false") == "true",
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001")),
	}

	return cfg, cfg.Validate()
}

func (c AppConfig) Validate() error {
	switch c.BackendMode {
	case BackendHosted, BackendSelfHosted, BackendLocal, BackendDemo:
	default:
		return fmt.Errorf("[Config] unknown BACKEND_MODE %q", c.BackendMode)
	}
	switch c.SummaryBackend {
	case SummaryDefault:
	case SummaryOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("[Config] SUMMARY_BACKEND=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("[Config] unknown SUMMARY_BACKEND %q", c.SummaryBackend)
	}
	switch c.ExecutionMode {
	case ExecutionInProcess, ExecutionWorker, ExecutionKafka:
	default:
		return fmt.Errorf("[Config] unknown EXECUTION_MODE %q", c.ExecutionMode)
	}
	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("[Config] WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("[Config] CORRELATOR_TIMEOUT must not be negative")
	}
	return nil
}
