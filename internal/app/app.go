// ABOUTME: Composition root wiring config into storage, services and pipeline stages
// ABOUTME: Shared by the CLI commands and the MCP server
package app

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/harper/storybrief/internal/config"
	"github.com/harper/storybrief/internal/core"
	"github.com/harper/storybrief/internal/index"
	"github.com/harper/storybrief/internal/llm"
	"github.com/harper/storybrief/internal/models"
	"github.com/harper/storybrief/internal/report"
	"github.com/harper/storybrief/internal/storage"
	"github.com/harper/storybrief/internal/tokenizer"
)

// Runtime holds every wired component for one process
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	Storage      *storage.Storage
	Embedder     llm.Embedder
	Completer    llm.Completer // nil when no LLM key is configured
	Builder      *index.Builder
	Retriever    *index.Retriever
	Orchestrator *core.Orchestrator
	Generator    *report.Generator // nil when Completer is nil

	summaryOnly bool
}

// Option adjusts a Runtime during construction
type Option func(*Runtime)

// WithEmbedder overrides the configured embedding service
func WithEmbedder(e llm.Embedder) Option {
	return func(r *Runtime) { r.Embedder = e }
}

// WithCompleter overrides the configured text-generation service
func WithCompleter(c llm.Completer) Option {
	return func(r *Runtime) { r.Completer = c }
}

// WithSummaryOnly makes the generator skip influence and merge stages
func WithSummaryOnly(on bool) Option {
	return func(r *Runtime) { r.summaryOnly = on }
}

// New opens storage and builds every component described by cfg
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runtime{Config: cfg, Logger: logger}
	for _, opt := range opts {
		opt(r)
	}

	if r.Embedder == nil {
		emb, err := NewEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		r.Embedder = emb
	}
	if r.Completer == nil && cfg.LLMAPIKey != "" {
		chat, err := NewCompleter(cfg)
		if err != nil {
			return nil, err
		}
		r.Completer = chat
	}

	tok, err := tokenizer.NewBPE(tokenizer.DefaultEncoding)
	if err != nil {
		return nil, err
	}
	chunker := core.NewChunkEngine(tok,
		core.WithChunkSize(cfg.ChunkSize),
		core.WithOverlap(cfg.ChunkOverlap))

	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.IndexBackend,
		IndexRoot:   cfg.IndexRoot,
		PostgresURL: cfg.PostgresURL,
	})
	if err != nil {
		return nil, err
	}
	r.Storage = store

	r.Builder = index.NewBuilder(store, r.Embedder, chunker,
		index.WithBatchSize(cfg.EmbedBatchSize),
		index.WithBuilderLogger(logger))
	r.Retriever = index.NewRetriever(store, r.Embedder, logger)
	r.Orchestrator = core.NewOrchestrator(r.Retriever,
		core.WithRerankK(cfg.RerankK),
		core.WithSortBy(models.SortBy(cfg.SortBy)),
		core.WithLogger(logger))

	if r.Completer != nil {
		r.Generator = report.NewGenerator(r.Completer, r.Retriever, r.Orchestrator,
			report.WithRetrievalK(cfg.RetrievalK),
			report.WithSummaryOnly(r.summaryOnly),
			report.WithLogger(logger))
	}
	return r, nil
}

// RequireGenerator returns the report generator or an error when generation is unavailable
func (r *Runtime) RequireGenerator() (*report.Generator, error) {
	if r.Generator == nil {
		return nil, goerr.New("report generation needs LLM_API_KEY", goerr.T(models.TagInvalidInput))
	}
	return r.Generator, nil
}

// Close releases storage
func (r *Runtime) Close() error {
	if r == nil || r.Storage == nil {
		return nil
	}
	return r.Storage.Close()
}

// NewEmbedder builds the embedding service selected by EMBED_PROVIDER
func NewEmbedder(cfg *config.Config) (llm.Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderHash:
		return llm.NewHashEmbedder(cfg.EmbedDim), nil
	case config.ProviderOpenAI, "":
		ec := llm.DefaultEmbeddingConfig(cfg.EmbedAPIKey)
		ec.BaseURL = cfg.EmbedBaseURL
		ec.Model = cfg.EmbedModel
		ec.Dimensions = cfg.EmbedDim
		ec.Timeout = cfg.LLMTimeout
		ec.MaxRetries = cfg.MaxRetries
		ec.RetryDelay = cfg.RetryDelay
		ec.RequestsPerSecond = cfg.EmbedRPS
		client, err := llm.NewEmbeddingClient(ec)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, goerr.New("unknown embedding provider",
			goerr.T(models.TagInvalidInput), goerr.V("provider", cfg.EmbedProvider))
	}
}

// NewCompleter builds the chat completion client
func NewCompleter(cfg *config.Config) (llm.Completer, error) {
	cc := llm.DefaultChatConfig(cfg.LLMAPIKey)
	cc.BaseURL = cfg.LLMBaseURL
	cc.Model = cfg.LLMModel
	cc.MaxTokens = cfg.LLMMaxTokens
	cc.Temperature = float32(cfg.LLMTemperature)
	cc.Timeout = cfg.LLMTimeout
	cc.MaxRetries = cfg.MaxRetries
	cc.RetryDelay = cfg.RetryDelay
	client, err := llm.NewChatClient(cc)
	if err != nil {
		return nil, err
	}
	return client, nil
}
