package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/tools"
)

// ErrNoCandidates is returned for a response without candidates.
var ErrNoCandidates = errors.New("no candidates in response")

// toContents splits the conversation into the system instruction and the
// contents. Consecutive tool results are merged into one user content.
func toContents(turns []agent.Turn) (*genai.Content, []*genai.Content) {
	var system *genai.Content
	var contents []*genai.Content

	for _, t := range turns {
		switch t.Role {
		case agent.RoleSystem:
			system = &genai.Content{Parts: []*genai.Part{{Text: t.Content}}}
		case agent.RoleQuestion:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleUser))
		case agent.RoleFinalAnswer:
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
		case agent.RoleToolRequest:
			c := &genai.Content{Role: genai.RoleModel}
			if t.Content != "" {
				c.Parts = append(c.Parts, &genai.Part{Text: t.Content})
			}
			for _, call := range t.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: parseArgs(call.Arguments),
				}})
			}
			contents = append(contents, c)
		case agent.RoleToolResult:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       t.ToolCallID,
				Name:     t.ToolName,
				Response: responseMap(t.Content),
			}}
			if n := len(contents); n > 0 && isFunctionResponse(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		}
	}
	return system, contents
}

func isFunctionResponse(c *genai.Content) bool {
	return c.Role == genai.RoleUser && len(c.Parts) > 0 && c.Parts[0].FunctionResponse != nil
}

// parseArgs decodes tool arguments. Arguments that are not a JSON object are
// passed through under "raw" so the tool can report them.
func parseArgs(s string) map[string]any {
	if strings.TrimSpace(s) == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{"raw": s}
	}
	return m
}

func responseMap(s string) map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return map[string]any{"output": s}
	}
	return m
}

func toTools(schemas []tools.Schema) []*genai.Tool {
	if len(schemas) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(schemas))
	for _, s := range schemas {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 s.Name,
			Description:          s.Description,
			ParametersJsonSchema: s.Parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func (p *Provider) toConfig(system *genai.Content, schemas []tools.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Tools:             toTools(schemas),
		Temperature:       genai.Ptr(p.opts.Temperature),
	}
	if p.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.opts.MaxTokens)
	}
	if cfg.Tools != nil {
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}
	return cfg
}

func fromResponse(resp *genai.GenerateContentResponse) (agent.Reply, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return agent.Reply{}, ErrNoCandidates
	}

	var reply agent.Reply
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return agent.Reply{}, fmt.Errorf("encoding arguments for %s: %w", part.FunctionCall.Name, err)
			}
			reply.ToolCalls = append(reply.ToolCalls, agent.ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	reply.Content = strings.TrimSpace(text.String())
	return reply, nil
}
