// ABOUTME: Centralized configuration for the storybrief pipeline
// ABOUTME: Defaults, then an optional TOML file, then environment variables
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/harper/storybrief/internal/models"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the pipeline
type Config struct {
	// Text generation service
	LLMAPIKey      string        `toml:"llm_api_key"`
	LLMBaseURL     string        `toml:"llm_base_url"`
	LLMModel       string        `toml:"llm_model"`
	LLMMaxTokens   int           `toml:"llm_max_tokens"`
	LLMTemperature float64       `toml:"llm_temperature"`
	LLMTimeout     time.Duration `toml:"llm_timeout"`

	// Embedding service
	EmbedProvider  string  `toml:"embed_provider"`
	EmbedAPIKey    string  `toml:"embed_api_key"`
	EmbedBaseURL   string  `toml:"embed_base_url"`
	EmbedModel     string  `toml:"embed_model"`
	EmbedDim       int     `toml:"embed_dim"`
	EmbedBatchSize int     `toml:"embed_batch_size"`
	EmbedRPS       float64 `toml:"embed_rps"`

	// Chunking
	ChunkSize    int `toml:"chunk_size"`
	ChunkOverlap int `toml:"chunk_overlap"`

	// Index storage
	IndexBackend string `toml:"index_backend"`
	IndexRoot    string `toml:"index_root"`
	PostgresURL  string `toml:"postgres_url"`

	// Retrieval
	RetrievalK int    `toml:"retrieval_k"`
	RerankK    int    `toml:"rerank_k"`
	SortBy     string `toml:"sort_by"`

	// Batch execution
	Workers    int           `toml:"workers"`
	MaxRetries int           `toml:"max_retries"`
	RetryDelay time.Duration `toml:"retry_delay"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Embedding providers
const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// ConfigEnv names the environment variable pointing at a TOML config file
const ConfigEnv = "STORYBRIEF_CONFIG"

// DefaultIndexRoot is where per-story indexes live when INDEX_ROOT is unset
func DefaultIndexRoot() string {
	return filepath.Join(xdg.DataHome, "storybrief", "indexes")
}

// DefaultConfigPath is the TOML file read when STORYBRIEF_CONFIG is unset
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "storybrief", "config.toml")
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		LLMBaseURL:     "https://api.siliconflow.cn/v1",
		LLMModel:       "deepseek-ai/DeepSeek-V3.2",
		LLMMaxTokens:   16384,
		LLMTemperature: 0,
		LLMTimeout:     60 * time.Second,
		EmbedProvider:  ProviderOpenAI,
		EmbedBaseURL:   "https://api.siliconflow.cn/v1",
		EmbedModel:     "Qwen/Qwen3-Embedding-8B",
		EmbedDim:       4096,
		EmbedBatchSize: 16,
		ChunkSize:      1024,
		ChunkOverlap:   128,
		IndexBackend:   "sqlite",
		IndexRoot:      DefaultIndexRoot(),
		RetrievalK:     5,
		RerankK:        5,
		SortBy:         "earliest",
		Workers:        5,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
		LogLevel:       "info",
		LogFormat:      "console",
	}
}

// Load reads configuration from the default TOML file (if present) and environment variables
func Load() (*Config, error) {
	path := os.Getenv(ConfigEnv)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	return LoadFile(path, explicit)
}

// LoadFile applies the TOML file at path over the defaults, then the environment.
// A missing file is an error only when required is true.
func LoadFile(path string, required bool) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid configuration", goerr.T(models.TagInvalidInput))
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LLMAPIKey = getEnv("LLM_API_KEY", c.LLMAPIKey)
	c.LLMBaseURL = getEnv("LLM_BASE_URL", c.LLMBaseURL)
	c.LLMModel = getEnv("LLM_MODEL", c.LLMModel)
	c.LLMMaxTokens = getEnvInt("LLM_MAX_TOKENS", c.LLMMaxTokens)
	c.LLMTemperature = getEnvFloat("LLM_TEMPERATURE", c.LLMTemperature)
	c.LLMTimeout = getEnvDuration("LLM_TIMEOUT", c.LLMTimeout)

	c.EmbedProvider = getEnv("EMBED_PROVIDER", c.EmbedProvider)
	// The embedding service shares the LLM key unless given its own
	c.EmbedAPIKey = getEnv("EMBED_API_KEY", c.EmbedAPIKey)
	if c.EmbedAPIKey == "" {
		c.EmbedAPIKey = c.LLMAPIKey
	}
	c.EmbedBaseURL = getEnv("EMBED_BASE_URL", c.EmbedBaseURL)
	c.EmbedModel = getEnv("EMBED_MODEL", c.EmbedModel)
	c.EmbedDim = getEnvInt("EMBED_DIM", c.EmbedDim)
	c.EmbedBatchSize = getEnvInt("EMBED_BATCH_SIZE", c.EmbedBatchSize)
	c.EmbedRPS = getEnvFloat("EMBED_RPS", c.EmbedRPS)

	c.ChunkSize = getEnvInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", c.ChunkOverlap)

	c.IndexBackend = getEnv("INDEX_BACKEND", c.IndexBackend)
	c.IndexRoot = getEnv("INDEX_ROOT", c.IndexRoot)
	c.PostgresURL = getEnv("POSTGRES_URL", c.PostgresURL)

	c.RetrievalK = getEnvInt("RETRIEVAL_K", c.RetrievalK)
	c.RerankK = getEnvInt("RERANK_K", c.RerankK)
	c.SortBy = getEnv("SORT_BY", c.SortBy)

	c.Workers = getEnvInt("WORKERS", c.Workers)
	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.RetryDelay = getEnvDuration("RETRY_DELAY", c.RetryDelay)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", c.EmbedBatchSize)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	if c.EmbedRPS < 0 {
		return fmt.Errorf("EMBED_RPS must not be negative, got %f", c.EmbedRPS)
	}
	switch c.EmbedProvider {
	case ProviderOpenAI, ProviderHash:
	default:
		return fmt.Errorf("EMBED_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderHash, c.EmbedProvider)
	}
	switch c.IndexBackend {
	case "sqlite", "postgres", "memory":
	default:
		return fmt.Errorf("INDEX_BACKEND must be sqlite, postgres or memory, got %q", c.IndexBackend)
	}
	if c.IndexBackend == "postgres" && c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL is required when INDEX_BACKEND=postgres")
	}
	if c.RetrievalK <= 0 || c.RerankK <= 0 {
		return fmt.Errorf("RETRIEVAL_K and RERANK_K must be positive, got %d and %d", c.RetrievalK, c.RerankK)
	}
	if c.SortBy != "earliest" && c.SortBy != "latest" {
		return fmt.Errorf("SORT_BY must be earliest or latest, got %q", c.SortBy)
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("WORKERS must be 1-64, got %d", c.Workers)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be 0-2, got %f", c.LLMTemperature)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

// RequireLLM reports an error when no text generation key is configured
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is not set")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
