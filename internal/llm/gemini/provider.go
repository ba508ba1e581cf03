// Package gemini adapts the Gemini API to agent.Provider.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/tools"
)

var _ agent.Provider = (*Provider)(nil)

// Options are the per-request settings.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Provider sends conversations to Gemini.
type Provider struct {
	client *genai.Client
	opts   Options
}

// New creates a Provider for the Gemini API backend. A non-empty baseURL
// overrides the endpoint.
func New(ctx context.Context, apiKey, baseURL string, opts Options) (*Provider, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Provider{client: client, opts: opts}, nil
}

// Name returns the model name.
func (p *Provider) Name() string {
	return p.opts.Model
}

// Send implements agent.Provider.
func (p *Provider) Send(ctx context.Context, turns []agent.Turn, schemas []tools.Schema) (agent.Reply, error) {
	system, contents := toContents(turns)
	resp, err := p.client.Models.GenerateContent(ctx, p.opts.Model, contents, p.toConfig(system, schemas))
	if err != nil {
		return agent.Reply{}, fmt.Errorf("generating content: %w", err)
	}
	return fromResponse(resp)
}
