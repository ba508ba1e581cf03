package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/finqa/internal/llm/gemini"
	"github.com/cleared-dev/finqa/internal/llm/openai"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		check    func(t *testing.T, p any)
	}{
		{"groq", ProviderGroq, func(t *testing.T, p any) { assert.IsType(t, &openai.Provider{}, p) }},
		{"openai upper case", "OpenAI", func(t *testing.T, p any) { assert.IsType(t, &openai.Provider{}, p) }},
		{"gemini", ProviderGemini, func(t *testing.T, p any) { assert.IsType(t, &gemini.Provider{}, p) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Provider = tt.provider
			cfg.APIKey = "test-key"
			p, err := New(ctx, cfg)
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	_, err := New(ctx, cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.APIKey = "k"
	cfg.Provider = "anthropic"
	_, err = New(ctx, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: groq, openai, gemini")

	cfg.Provider = ProviderGroq
	cfg.Model = ""
	_, err = New(ctx, cfg)
	assert.ErrorContains(t, err, "model is required")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProviderGroq, cfg.Provider)
	assert.Equal(t, "openai/gpt-oss-20b", cfg.Model)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.BaseURL)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Equal(t, 4096, cfg.MaxTokens)
}
