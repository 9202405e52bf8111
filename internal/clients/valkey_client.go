package clients

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spacesedan/sentiscope/internal/models"
	"github.com/valkey-io/valkey-go"
)

const VALKEY_RESULT_PREFIX = "sentiscope:result"

type ValkeyConfig struct {
	Address  string
	Password string
	UseTLS   bool
	TTL      time.Duration
	// DisableCache turns off client-side caching for servers without
	// CLIENT TRACKING support.
	DisableCache bool
	AlwaysRESP2  bool
}

// ValkeyClient stores normalized results keyed by task and a hash of the
// input text.
type ValkeyClient struct {
	Client valkey.Client
	cfg    ValkeyConfig
	mu     sync.Mutex
}

func valkeyOptions(cfg ValkeyConfig) valkey.ClientOption {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
		DisableCache:     cfg.DisableCache,
		AlwaysRESP2:      cfg.AlwaysRESP2,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}
	return opts
}

func connectValkey(cfg ValkeyConfig) (valkey.Client, error) {
	client, err := valkey.NewClient(valkeyOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*3)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func NewValkeyClient(cfg ValkeyConfig) (*ValkeyClient, error) {
	client, err := connectValkey(cfg)
	if err != nil {
		return nil, err
	}

	slog.Info("[ValkeyClient] Successfully connected to valkey",
		slog.String("address", cfg.Address),
		slog.Duration("ttl", cfg.TTL))
	return &ValkeyClient{Client: client, cfg: cfg}, nil
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func (vc *ValkeyClient) client() valkey.Client {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.Client
}

func (vc *ValkeyClient) Close() {
	vc.client().Close()
}

func (vc *ValkeyClient) Ping(ctx context.Context) error {
	return vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Ping().Build()
	}, 1).Error()
}

func resultKey(task models.Task, text string) string {
	sum := sha256.Sum256([]byte(text))
	return VALKEY_RESULT_PREFIX + ":" + task.String() + ":" + hex.EncodeToString(sum[:])
}

// Lookup returns a cached result. A miss is (zero, false, nil).
func (vc *ValkeyClient) Lookup(ctx context.Context, task models.Task, text string) (models.Result, bool, error) {
	key := resultKey(task, text)
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		return c.B().Get().Key(key).Build()
	}, 3)

	data, err := res.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return models.Result{}, false, nil
		}
		if isConnectionError(err) {
			vc.recreateClient()
		}
		return models.Result{}, false, err
	}

	var result models.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return models.Result{}, false, fmt.Errorf("[ValkeyClient] corrupt cached result: %w", err)
	}
	return result, true, nil
}

func (vc *ValkeyClient) Store(ctx context.Context, task models.Task, text string, result models.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("[ValkeyClient] failed to marshal result: %w", err)
	}

	key := resultKey(task, text)
	ttl := int64(vc.cfg.TTL / time.Second)
	res := vc.DoWithRetry(ctx, func(c valkey.Client) valkey.Completed {
		if ttl > 0 {
			return c.B().Set().Key(key).Value(string(data)).ExSeconds(ttl).Build()
		}
		return c.B().Set().Key(key).Value(string(data)).Build()
	}, 3)
	if err := res.Error(); err != nil {
		return err
	}

	slog.Debug("[ValkeyClient] Stored result",
		slog.String("task", task.String()),
		slog.String("key", key))
	return nil
}

// Built commands are recycled once executed, so retries rebuild them.
func (vc *ValkeyClient) DoWithRetry(ctx context.Context, build func(valkey.Client) valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	for i := 0; i < retries; i++ {
		c := vc.client()
		result = c.Do(ctx, build(c))
		if err := result.Error(); err == nil || valkey.IsValkeyNil(err) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))

		time.Sleep(250 * time.Millisecond)
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
