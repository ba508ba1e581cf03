// Package openai adapts OpenAI-compatible chat completion endpoints (OpenAI,
// Groq) to agent.Provider.
package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

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

// Provider sends conversations to a chat completion endpoint.
type Provider struct {
	client *openai.Client
	opts   Options
}

// New creates a Provider. An empty baseURL keeps the OpenAI default.
func New(apiKey, baseURL string, opts Options) *Provider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Provider{client: openai.NewClientWithConfig(cfg), opts: opts}
}

// Name returns the model name.
func (p *Provider) Name() string {
	return p.opts.Model
}

// Send implements agent.Provider.
func (p *Provider) Send(ctx context.Context, turns []agent.Turn, schemas []tools.Schema) (agent.Reply, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.toRequest(turns, schemas))
	if err != nil {
		return agent.Reply{}, fmt.Errorf("creating chat completion: %w", err)
	}
	return fromResponse(&resp)
}
