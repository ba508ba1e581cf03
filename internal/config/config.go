package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/finqa/internal/tables"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "finqa.yaml"

// Config represents the top-level finqa.yaml configuration.
type Config struct {
	Data     DataConfig     `yaml:"data"`
	Provider ProviderConfig `yaml:"provider"`
	Agent    AgentConfig    `yaml:"agent"`
	Trace    TraceConfig    `yaml:"trace"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DataConfig locates the four CSV tables.
type DataConfig struct {
	Dir           string            `yaml:"dir"`
	Files         map[string]string `yaml:"files,omitempty"`          // table name -> file name, e.g. actuals: actuals_2025.csv
	CategoryRules string            `yaml:"category_rules,omitempty"` // optional pattern,class CSV
}

// ProviderConfig selects the language model. The API key itself is read
// from the environment variable named by APIKeyEnv.
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentConfig bounds the question loop.
type AgentConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"`
	ParallelTools bool          `yaml:"parallel_tools"`
	MaxRows       int           `yaml:"max_rows"`
}

// TraceConfig controls the CSV trace export.
type TraceConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// ServerConfig controls `finqa serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads a finqa.yaml file from disk. Fields missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ProviderPreset returns the provider section for groq, openai or gemini.
func ProviderPreset(name string) (ProviderConfig, error) {
	p := ProviderConfig{Name: strings.ToLower(strings.TrimSpace(name)), Temperature: 0.7, MaxTokens: 4096}
	switch p.Name {
	case "groq":
		p.Model = "openai/gpt-oss-20b"
		p.BaseURL = "https://api.groq.com/openai/v1"
		p.APIKeyEnv = "GROQ_API_KEY"
	case "openai":
		p.Model = "gpt-4o-mini"
		p.APIKeyEnv = "OPENAI_API_KEY"
	case "gemini":
		p.Model = "gemini-2.5-flash"
		p.APIKeyEnv = "GEMINI_API_KEY"
	default:
		return ProviderConfig{}, fmt.Errorf("unknown provider %q (supported: groq, openai, gemini)", name)
	}
	return p, nil
}

// Default returns a Config with sensible defaults for a new project: the Groq
// endpoint, data in ./data and traces in ./logs.
func Default() *Config {
	groq, _ := ProviderPreset("groq")
	return &Config{
		Data: DataConfig{
			Dir: "data",
		},
		Provider: groq,
		Agent: AgentConfig{
			MaxIterations: 8,
			Timeout:       60 * time.Second,
			MaxRows:       200,
		},
		Trace: TraceConfig{
			Enabled: true,
			Dir:     "logs",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	for name := range c.Data.Files {
		if _, err := tables.ParseName(name); err != nil {
			errs = append(errs, fmt.Errorf("data.files: %w", err))
		}
	}
	if c.Provider.Name == "" {
		errs = append(errs, errors.New("provider.name is required"))
	}
	if c.Provider.Model == "" {
		errs = append(errs, errors.New("provider.model is required"))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("agent.timeout must be positive, got %s", c.Agent.Timeout))
	}
	if c.Agent.MaxRows < 1 {
		errs = append(errs, fmt.Errorf("agent.max_rows must be positive, got %d", c.Agent.MaxRows))
	}
	return errors.Join(errs...)
}

// DataFiles maps table names to configured file names. Unlisted tables use
// their default file name.
func (c *Config) DataFiles() map[tables.Name]string {
	out := make(map[tables.Name]string, len(c.Data.Files))
	for name, file := range c.Data.Files {
		if n, err := tables.ParseName(name); err == nil {
			out[n] = file
		}
	}
	return out
}

// Resolve makes relative data, rules and trace paths relative to base, the
// directory holding finqa.yaml.
func (c *Config) Resolve(base string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.Data.Dir = abs(c.Data.Dir)
	c.Data.CategoryRules = abs(c.Data.CategoryRules)
	c.Trace.Dir = abs(c.Trace.Dir)
}

// APIKey returns the provider key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}
