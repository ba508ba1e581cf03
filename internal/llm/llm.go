// Package llm creates the model provider named in the configuration.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/llm/gemini"
	"github.com/cleared-dev/finqa/internal/llm/openai"
)

// Provider kinds.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Defaults for the Groq endpoint.
const (
	GroqBaseURL        = "https://api.groq.com/openai/v1"
	DefaultModel       = "openai/gpt-oss-20b"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("missing API key")

// Config selects and configures a provider.
type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	MaxTokens   int
}

// DefaultConfig returns the Groq defaults without an API key.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderGroq,
		Model:       DefaultModel,
		BaseURL:     GroqBaseURL,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

// New creates the provider for cfg.
func New(ctx context.Context, cfg Config) (agent.Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, ErrMissingAPIKey)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s provider: model is required", cfg.Provider)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderGroq:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = GroqBaseURL
		}
		return openai.New(cfg.APIKey, baseURL, openaiOptions(cfg)), nil
	case ProviderOpenAI:
		return openai.New(cfg.APIKey, cfg.BaseURL, openaiOptions(cfg)), nil
	case ProviderGemini:
		p, err := gemini.New(ctx, cfg.APIKey, cfg.BaseURL, gemini.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q (supported: %s, %s, %s)",
			cfg.Provider, ProviderGroq, ProviderOpenAI, ProviderGemini)
	}
}

func openaiOptions(cfg Config) openai.Options {
	return openai.Options{Model: cfg.Model, Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
}
