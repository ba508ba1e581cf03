package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/finqa/internal/tables"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Data.Files = map[string]string{"actuals": "actuals_2025.csv"}
	cfg.Provider.Name = "gemini"
	cfg.Provider.Model = "gemini-2.5-flash"
	cfg.Agent.Timeout = 90 * time.Second
	cfg.Agent.ParallelTools = true

	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "groq", cfg.Provider.Name)
	assert.Equal(t, "openai/gpt-oss-20b", cfg.Provider.Model)
	assert.Equal(t, "GROQ_API_KEY", cfg.Provider.APIKeyEnv)
	assert.InDelta(t, 0.7, cfg.Provider.Temperature, 0.001)
	assert.Equal(t, 4096, cfg.Provider.MaxTokens)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, time.Minute, cfg.Agent.Timeout)
	assert.Equal(t, 200, cfg.Agent.MaxRows)
	assert.True(t, cfg.Trace.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("agent:\n  timeout: 30s\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Agent.Timeout)
	assert.Equal(t, 8, cfg.Agent.MaxIterations)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "groq", cfg.Provider.Name)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	body := "data:\n  files:\n    forecast: f.csv\nagent:\n  max_iterations: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data.files")
	assert.Contains(t, err.Error(), "agent.max_iterations must be positive, got 0")
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Save(path, Default()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "api_key_env: GROQ_API_KEY")
	assert.Contains(t, contents, "timeout: 1m0s")
	assert.Contains(t, contents, "max_iterations: 8")
	assert.NotContains(t, contents, "api_key:")
}

func TestDataFilesAndResolve(t *testing.T) {
	cfg := Default()
	cfg.Data.Files = map[string]string{"fx.csv": "rates.csv"}
	assert.Equal(t, map[tables.Name]string{tables.FX: "rates.csv"}, cfg.DataFiles())

	cfg.Data.CategoryRules = "rules.csv"
	cfg.Resolve("/srv/finqa")
	assert.Equal(t, filepath.Join("/srv/finqa", "data"), cfg.Data.Dir)
	assert.Equal(t, filepath.Join("/srv/finqa", "rules.csv"), cfg.Data.CategoryRules)
	assert.Equal(t, filepath.Join("/srv/finqa", "logs"), cfg.Trace.Dir)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("FINQA_TEST_KEY", "sk-123")
	p := ProviderConfig{APIKeyEnv: "FINQA_TEST_KEY"}
	assert.Equal(t, "sk-123", p.APIKey())
	assert.Empty(t, ProviderConfig{}.APIKey())
}

func TestProviderPreset(t *testing.T) {
	tests := []struct {
		name      string
		model     string
		baseURL   string
		apiKeyEnv string
	}{
		{"groq", "openai/gpt-oss-20b", "https://api.groq.com/openai/v1", "GROQ_API_KEY"},
		{"OpenAI", "gpt-4o-mini", "", "OPENAI_API_KEY"},
		{"gemini", "gemini-2.5-flash", "", "GEMINI_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ProviderPreset(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.model, p.Model)
			assert.Equal(t, tt.baseURL, p.BaseURL)
			assert.Equal(t, tt.apiKeyEnv, p.APIKeyEnv)
		})
	}

	_, err := ProviderPreset("anthropic")
	assert.ErrorContains(t, err, "unknown provider")
}
