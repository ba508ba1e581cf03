package agent

import (
	"context"

	"github.com/cleared-dev/finqa/internal/tools"
)

// Role is the kind of a conversation turn.
type Role string

const (
	RoleSystem      Role = "system"
	RoleQuestion    Role = "question"
	RoleToolRequest Role = "tool_request"
	RoleToolResult  Role = "tool_result"
	RoleFinalAnswer Role = "final_answer"
)

// ToolCall is one tool invocation requested by the model. Arguments is the
// raw JSON the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Turn is one step of the conversation. Turns are appended, never edited.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// Reply is a provider response: a final answer when ToolCalls is empty.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// IsFinal reports whether the reply ends the question.
func (r Reply) IsFinal() bool {
	return len(r.ToolCalls) == 0
}

// Provider is the language model. Implementations translate turns and tool
// schemas into their wire format; they must honour ctx cancellation.
type Provider interface {
	Send(ctx context.Context, turns []Turn, schemas []tools.Schema) (Reply, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, turns []Turn, schemas []tools.Schema) (Reply, error)

// Send calls f.
func (f ProviderFunc) Send(ctx context.Context, turns []Turn, schemas []tools.Schema) (Reply, error) {
	return f(ctx, turns, schemas)
}
