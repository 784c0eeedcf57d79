package llm

import "context"

// Role of a chat message exchanged with a model
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a chat exchange. Assistant turns may carry tool
// calls; tool turns carry the result for ToolCallID.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	Name       string
}

// ToolCall is a model's request to invoke a tool
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolParameter describes one string argument of a tool
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// ToolDefinition is advertised to the model
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// ChatRequest contains chat generation parameters
type ChatRequest struct {
	System      string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float32
	MaxTokens   int
}

// ChatResponse contains one model turn
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// HasToolCalls reports whether the model asked for tools.
func (r *ChatResponse) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat runs one model turn
	Chat(ctx context.Context, req ChatRequest, model string) (*ChatResponse, error)
}

// Complete is a single-turn helper: one system instruction, one user message,
// no tools.
func Complete(ctx context.Context, p Provider, model, system, user string) (*ChatResponse, error) {
	return p.Chat(ctx, ChatRequest{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
	}, model)
}

// JSONSchema renders the tool's parameters as a JSON schema object.
func (d ToolDefinition) JSONSchema() map[string]any {
	properties := make(map[string]any, len(d.Parameters))
	required := []string{}
	for _, p := range d.Parameters {
		properties[p.Name] = map[string]any{
			"type":        "string",
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
