// Package config loads llmflow configuration from TOML with environment
// overrides, and builds clients from it. Files can be watched for changes.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/martinemde/llmflow/llm"
)

// ProviderConfig configures one model provider backend.
type ProviderConfig struct {
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	MaxTokens   int      `toml:"max_tokens"`
	Temperature *float64 `toml:"temperature"`
}

// RAGConfig configures retrieval-augmented generation components.
type RAGConfig struct {
	OllamaURL    string `toml:"ollama_url" env:"OLLAMA_URL"`
	EmbedModel   string `toml:"embed_model" env:"EMBED_MODEL"`
	EmbedDim     int    `toml:"embed_dim" env:"EMBED_DIM"`
	QdrantAddr   string `toml:"qdrant_addr" env:"QDRANT_ADDR"`
	Collection   string `toml:"collection" env:"COLLECTION"`
	TopK         int    `toml:"top_k"`
	ChunkSize    int    `toml:"chunk_size"`
	ChunkOverlap int    `toml:"chunk_overlap"`
}

// MemoryConfig configures conversation memory.
type MemoryConfig struct {
	MaxMessages int `toml:"max_messages"`
	TTLMinutes  int `toml:"ttl_minutes"`
}

// Config is the full llmflow configuration.
type Config struct {
	DefaultProvider string                    `toml:"default_provider" env:"DEFAULT_PROVIDER"`
	LogLevel        string                    `toml:"log_level" env:"LOG_LEVEL"`
	Providers       map[string]ProviderConfig `toml:"providers"`
	RAG             RAGConfig                 `toml:"rag" envPrefix:"RAG_"`
	Memory          MemoryConfig              `toml:"memory"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		LogLevel: "info",
		RAG: RAGConfig{
			OllamaURL:    "http://localhost:11434",
			EmbedModel:   "nomic-embed-text",
			EmbedDim:     768,
			QdrantAddr:   "localhost:6334",
			Collection:   "llmflow",
			TopK:         4,
			ChunkSize:    200,
			ChunkOverlap: 20,
		},
		Memory: MemoryConfig{
			MaxMessages: 20,
			TTLMinutes:  60,
		},
	}
}

// Load reads the TOML file at path (skipped when path is empty), then
// applies LLMFLOW_-prefixed environment overrides, then fills provider API
// keys from their conventional environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "LLMFLOW_"}); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	for name, pc := range cfg.Providers {
		if pc.APIKey == "" {
			pc.APIKey = os.Getenv(strings.ToUpper(name) + "_API_KEY")
			cfg.Providers[name] = pc
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DefaultProvider != "" {
		if _, ok := c.Providers[c.DefaultProvider]; !ok {
			return &llm.ConfigError{BaseError: llm.BaseError{
				Message: fmt.Sprintf("default_provider %q has no [providers.%s] section", c.DefaultProvider, c.DefaultProvider),
			}}
		}
	}
	if c.RAG.ChunkOverlap >= c.RAG.ChunkSize && c.RAG.ChunkSize > 0 {
		return &llm.ConfigError{BaseError: llm.BaseError{Message: "rag.chunk_overlap must be smaller than rag.chunk_size"}}
	}
	return nil
}

// NewClient builds an llm.Client with a gollm-backed provider per
// configured [providers.*] section.
func (c *Config) NewClient() (*llm.Client, error) {
	if len(c.Providers) == 0 {
		return nil, &llm.ConfigError{BaseError: llm.BaseError{Message: "no providers configured"}}
	}

	var opts []llm.Option
	for name, pc := range c.Providers {
		var gollmOpts []llm.GollmOption
		if pc.APIKey != "" {
			gollmOpts = append(gollmOpts, llm.WithAPIKey(pc.APIKey))
		}
		if pc.Model != "" {
			gollmOpts = append(gollmOpts, llm.WithModel(pc.Model))
		}
		if pc.MaxTokens > 0 {
			gollmOpts = append(gollmOpts, llm.WithMaxTokens(pc.MaxTokens))
		}
		if pc.Temperature != nil {
			gollmOpts = append(gollmOpts, llm.WithTemperature(*pc.Temperature))
		}

		provider, err := llm.NewGollmProvider(name, gollmOpts...)
		if err != nil {
			return nil, fmt.Errorf("building provider %s: %w", name, err)
		}
		opts = append(opts, llm.WithProvider(name, provider))
	}

	if c.DefaultProvider != "" {
		opts = append(opts, llm.WithDefaultProvider(c.DefaultProvider))
	}
	return llm.NewClient(opts...), nil
}
