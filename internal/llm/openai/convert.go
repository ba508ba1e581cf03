package openai

import (
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/cleared-dev/finqa/internal/agent"
	"github.com/cleared-dev/finqa/internal/tools"
)

// ErrNoChoices is returned for a completion without choices.
var ErrNoChoices = errors.New("no choices in completion response")

// toolChoiceAuto lets the model decide between answering and calling tools.
const toolChoiceAuto = "auto"

func toMessages(turns []agent.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case agent.RoleSystem:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: t.Content})
		case agent.RoleQuestion:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.Content})
		case agent.RoleFinalAnswer:
			msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Content})
		case agent.RoleToolRequest:
			msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.Content}
			for _, c := range t.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   c.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      c.Name,
						Arguments: c.Arguments,
					},
				})
			}
			msgs = append(msgs, msg)
		case agent.RoleToolResult:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    t.Content,
				Name:       t.ToolName,
				ToolCallID: t.ToolCallID,
			})
		}
	}
	return msgs
}

func toTools(schemas []tools.Schema) []openai.Tool {
	out := make([]openai.Tool, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Parameters,
			},
		})
	}
	return out
}

func (p *Provider) toRequest(turns []agent.Turn, schemas []tools.Schema) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    toMessages(turns),
		Temperature: p.opts.Temperature,
		MaxTokens:   p.opts.MaxTokens,
	}
	if len(schemas) > 0 {
		req.Tools = toTools(schemas)
		req.ToolChoice = toolChoiceAuto
	}
	return req
}

func fromResponse(resp *openai.ChatCompletionResponse) (agent.Reply, error) {
	if len(resp.Choices) == 0 {
		return agent.Reply{}, ErrNoChoices
	}
	msg := resp.Choices[0].Message
	reply := agent.Reply{Content: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "" && tc.Type != openai.ToolTypeFunction {
			continue
		}
		reply.ToolCalls = append(reply.ToolCalls, agent.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}
