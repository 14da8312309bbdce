// Package config loads replyd settings from an optional YAML file
// overlaid by environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/overhuman/replyd/internal/brain"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Claude models used when provider is claude and no model was chosen.
const (
	ClaudeReasoningModel  = brain.ClaudeSonnet4Model
	ClaudeGenerationModel = brain.ClaudeHaiku35Model
)

// Config is the full service configuration.
type Config struct {
	Addr            string          `yaml:"addr"`
	Log             LogConfig       `yaml:"log"`
	Provider        string          `yaml:"provider"`
	OpenAI          OpenAIConfig    `yaml:"openai"`
	Anthropic       AnthropicConfig `yaml:"anthropic"`
	Models          ModelsConfig    `yaml:"models"`
	ProviderTimeout time.Duration   `yaml:"provider_timeout"`
	MaxTokens       int             `yaml:"max_tokens"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes"`
	PromptsFile     string          `yaml:"prompts_file"`
	Sentry          SentryConfig    `yaml:"sentry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelsConfig picks the model serving each role.
type ModelsConfig struct {
	Reasoning  string `yaml:"reasoning"`
	Generation string `yaml:"generation"`
	Embedding  string `yaml:"embedding"`
}

type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Addr:     "127.0.0.1:8000",
		Log:      LogConfig{Level: "info", Format: "json"},
		Provider: ProviderOpenAI,
		Models: ModelsConfig{
			Reasoning:  brain.DefaultReasoningModel,
			Generation: brain.DefaultGenerationModel,
			Embedding:  brain.DefaultEmbeddingModel,
		},
		MaxBodyBytes: 1 << 20,
		Sentry:       SentryConfig{Environment: "production"},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies
// environment overrides. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.applyProviderDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Addr = envOrDefault("REPLYD_ADDR", c.Addr)
	c.Log.Level = envOrDefault("REPLYD_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("REPLYD_LOG_FORMAT", c.Log.Format)
	c.Provider = strings.ToLower(envOrDefault("REPLYD_PROVIDER", c.Provider))
	c.OpenAI.APIKey = envOrDefault("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = envOrDefault("OPENAI_BASE_URL", c.OpenAI.BaseURL)
	c.Anthropic.APIKey = envOrDefault("ANTHROPIC_API_KEY", c.Anthropic.APIKey)
	c.Anthropic.BaseURL = envOrDefault("ANTHROPIC_BASE_URL", c.Anthropic.BaseURL)
	c.Models.Reasoning = envOrDefault("REPLYD_REASONING_MODEL", c.Models.Reasoning)
	c.Models.Generation = envOrDefault("REPLYD_GENERATION_MODEL", c.Models.Generation)
	c.Models.Embedding = envOrDefault("REPLYD_EMBEDDING_MODEL", c.Models.Embedding)
	c.PromptsFile = envOrDefault("REPLYD_PROMPTS_FILE", c.PromptsFile)
	c.Sentry.DSN = envOrDefault("SENTRY_DSN", c.Sentry.DSN)
	c.Sentry.Environment = envOrDefault("SENTRY_ENVIRONMENT", c.Sentry.Environment)

	var err error
	if c.ProviderTimeout, err = envDurationOrDefault("REPLYD_PROVIDER_TIMEOUT", c.ProviderTimeout); err != nil {
		return err
	}
	if c.MaxBodyBytes, err = envInt64OrDefault("REPLYD_MAX_BODY_BYTES", c.MaxBodyBytes); err != nil {
		return err
	}
	maxTokens, err := envInt64OrDefault("REPLYD_MAX_TOKENS", int64(c.MaxTokens))
	if err != nil {
		return err
	}
	c.MaxTokens = int(maxTokens)
	return nil
}

// applyProviderDefaults swaps untouched OpenAI completion models for Claude
// ones when completions go to Anthropic. Embeddings always use OpenAI.
func (c *Config) applyProviderDefaults() {
	if c.Provider != ProviderClaude {
		return
	}
	if c.Models.Reasoning == brain.DefaultReasoningModel {
		c.Models.Reasoning = ClaudeReasoningModel
	}
	if c.Models.Generation == brain.DefaultGenerationModel {
		c.Models.Generation = ClaudeGenerationModel
	}
}

// Validate reports every problem found, joined into one error.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderClaude:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOpenAI, ProviderClaude))
	}
	// Embeddings always go through the OpenAI API. A custom base URL may
	// point at a local server that needs no key.
	if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required"))
	}
	if c.Provider == ProviderClaude && c.Anthropic.APIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required when provider is claude"))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.ProviderTimeout < 0 {
		errs = append(errs, errors.New("provider_timeout must not be negative"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, errors.New("max_tokens must not be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max_body_bytes must be positive"))
	}
	return errors.Join(errs...)
}

// ModelEntries returns the role bindings for brain.NewModelRouterWithModels.
func (c Config) ModelEntries() []brain.ModelEntry {
	return []brain.ModelEntry{
		{Role: brain.RoleReasoning, ID: c.Models.Reasoning},
		{Role: brain.RoleGeneration, ID: c.Models.Generation},
		{Role: brain.RoleEmbedding, ID: c.Models.Embedding},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64OrDefault(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// envDurationOrDefault accepts Go durations ("30s") or plain seconds ("30").
func envDurationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
