// ABOUTME: OpenAI-compatible clients for embeddings and chat completions
// ABOUTME: Base URL is configurable so SiliconFlow and other compatible endpoints work
package llm

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/util"
)

const (
	// DefaultChatModel is the default model for report generation
	DefaultChatModel = "deepseek-ai/DeepSeek-V3.2"
	// DefaultEmbeddingModel is the default embedding model
	DefaultEmbeddingModel = "Qwen/Qwen3-Embedding-8B"
	// DefaultEmbeddingDim is the width of DefaultEmbeddingModel vectors
	DefaultEmbeddingDim = 4096
	// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured
	DefaultBaseURL = "https://api.siliconflow.cn/v1"
)

// ClientConfig holds configuration shared by both clients
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64

	// Chat only
	MaxTokens   int
	Temperature float32

	// Embeddings only
	Dimensions int
}

// DefaultChatConfig returns the default chat client configuration
func DefaultChatConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Model:      DefaultChatModel,
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		MaxTokens:  16384,
	}
}

// DefaultEmbeddingConfig returns the default embedding client configuration
func DefaultEmbeddingConfig(apiKey string) ClientConfig {
	return ClientConfig{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Model:      DefaultEmbeddingModel,
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
		Dimensions: DefaultEmbeddingDim,
	}
}

func newOpenAI(cfg ClientConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, goerr.New("API key is required", goerr.T(models.TagInvalidInput), goerr.V("model", cfg.Model))
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oc), nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// EmbeddingClient calls an OpenAI-compatible embeddings endpoint
type EmbeddingClient struct {
	client  *openai.Client
	cfg     ClientConfig
	limiter *rate.Limiter
}

// NewEmbeddingClient creates an embedding client from cfg
func NewEmbeddingClient(cfg ClientConfig) (*EmbeddingClient, error) {
	client, err := newOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	return &EmbeddingClient{client: client, cfg: cfg, limiter: newLimiter(cfg.RequestsPerSecond)}, nil
}

// Dimension returns the configured vector width
func (c *EmbeddingClient) Dimension() int {
	return c.cfg.Dimensions
}

// EmbedBatch embeds texts in one request, retrying transient failures.
// Failures are tagged as embedding service failures.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out [][]float32
	err := util.Retry(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
		}

		callCtx, cancel := withTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: openai.EmbeddingModel(c.cfg.Model),
		})
		if err != nil {
			return classify(err)
		}
		if len(resp.Data) != len(texts) {
			return goerr.New("embedding count mismatch",
				goerr.V("want", len(texts)), goerr.V("got", len(resp.Data)))
		}

		// The service may return items out of order; Index is authoritative
		data := resp.Data
		sort.SliceStable(data, func(i, j int) bool { return data[i].Index < data[j].Index })

		vectors := make([][]float32, len(data))
		for i, d := range data {
			if c.cfg.Dimensions > 0 && len(d.Embedding) != c.cfg.Dimensions {
				return util.Permanent(goerr.New("embedding width does not match configured dimension",
					goerr.V("index", d.Index),
					goerr.V("want", c.cfg.Dimensions),
					goerr.V("got", len(d.Embedding))))
			}
			vectors[i] = d.Embedding
		}
		out = vectors
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "embedding request failed",
			goerr.T(models.TagEmbeddingFailure),
			goerr.V("model", c.cfg.Model),
			goerr.V("batch_size", len(texts)))
	}
	return out, nil
}

// ChatClient calls an OpenAI-compatible chat completions endpoint
type ChatClient struct {
	client  *openai.Client
	cfg     ClientConfig
	limiter *rate.Limiter
}

// NewChatClient creates a chat client from cfg
func NewChatClient(cfg ClientConfig) (*ChatClient, error) {
	client, err := newOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	return &ChatClient{client: client, cfg: cfg, limiter: newLimiter(cfg.RequestsPerSecond)}, nil
}

// Complete sends messages and returns the first choice's content.
// Failures are tagged as generation failures.
func (c *ChatClient) Complete(ctx context.Context, messages []Message) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	var content string
	err := util.Retry(ctx, c.cfg.MaxRetries, c.cfg.RetryDelay, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return util.Permanent(err)
			}
		}

		callCtx, cancel := withTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 {
			return goerr.New("no completion choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", goerr.Wrap(err, "chat completion failed",
			goerr.T(models.TagGenerationFailure),
			goerr.V("model", c.cfg.Model))
	}
	return content, nil
}

// classify marks client errors other than rate limiting as not worth retrying
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isPermanentStatus(apiErr.HTTPStatusCode) {
		return util.Permanent(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isPermanentStatus(reqErr.HTTPStatusCode) {
		return util.Permanent(err)
	}
	return err
}

func isPermanentStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
