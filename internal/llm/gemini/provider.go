package gemini

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/llm"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemini-2.5-flash"
}

func (p *Provider) IsConfigured() bool {
	return p.apiKey != ""
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest, model string) (*llm.ChatResponse, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	if model == "" {
		model = p.DefaultModel()
	}

	contents := toContents(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("gemini chat requires at least one message")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	temperature := req.Temperature
	generativeModel.Temperature = &temperature
	if req.MaxTokens > 0 {
		generativeModel.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		generativeModel.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if len(req.Tools) > 0 {
		generativeModel.Tools = []*genai.Tool{toTool(req.Tools)}
	}

	session := generativeModel.StartChat()
	session.History = contents[:len(contents)-1]
	last := contents[len(contents)-1]

	start := time.Now()
	resp, err := session.SendMessage(ctx, last.Parts...)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	out := fromParts(resp.Candidates[0].Content.Parts)
	out.Model = model
	out.LatencyMs = latency
	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return out, nil
}

func toTool(defs []llm.ToolDefinition) *genai.Tool {
	tool := &genai.Tool{}
	for _, d := range defs {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(d.Parameters)),
		}
		for _, param := range d.Parameters {
			schema.Properties[param.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: param.Description,
			}
			if param.Required {
				schema.Required = append(schema.Required, param.Name)
			}
		}

		decl := &genai.FunctionDeclaration{
			Name:        d.Name,
			Description: d.Description,
		}
		if len(d.Parameters) > 0 {
			decl.Parameters = schema
		}
		tool.FunctionDeclarations = append(tool.FunctionDeclarations, decl)
	}
	return tool
}

// toContents maps chat turns onto gemini contents. Consecutive tool results
// are folded into one user turn of function responses.
func toContents(messages []llm.Message) []*genai.Content {
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case llm.RoleAssistant:
			c := &genai.Content{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, genai.Text(m.Content))
			}
			for _, call := range m.ToolCalls {
				c.Parts = append(c.Parts, genai.FunctionCall{Name: call.Name, Args: call.Arguments})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case llm.RoleTool:
			part := genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			}
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{part}})
		case llm.RoleSystem:
			// system text travels as SystemInstruction
		default:
			contents = append(contents, genai.NewUserContent(genai.Text(m.Content)))
		}
	}
	return contents
}

func isFunctionResponses(c *genai.Content) bool {
	if c.Role != "user" || len(c.Parts) == 0 {
		return false
	}
	_, ok := c.Parts[0].(genai.FunctionResponse)
	return ok
}

func fromParts(parts []genai.Part) *llm.ChatResponse {
	out := &llm.ChatResponse{}
	for i, part := range parts {
		switch v := part.(type) {
		case genai.Text:
			out.Content += string(v)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        fmt.Sprintf("call_%d_%s", i, v.Name),
				Name:      v.Name,
				Arguments: v.Args,
			})
		}
	}
	return out
}
