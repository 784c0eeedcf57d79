package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/llm"
)

// Provider implements llm.Provider for OpenAI and OpenAI-compatible chat
// completion endpoints (deepseek, ollama).
type Provider struct {
	name         string
	apiKey       string
	defaultModel string
	models       []string
	keyless      bool
	client       *http.Client
	baseURL      string
}

// Option customizes a Provider
type Option func(*Provider)

// WithName overrides the provider identifier.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithModels overrides the advertised model list.
func WithModels(models ...string) Option {
	return func(p *Provider) { p.models = models }
}

// Keyless marks an endpoint that needs no API key, like a local ollama.
func Keyless() Option {
	return func(p *Provider) { p.keyless = true }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// NewProvider creates a new OpenAI provider
func NewProvider(cfg config.OpenAIConfig, opts ...Option) *Provider {
	p := &Provider{
		name:         "openai",
		apiKey:       cfg.APIKey,
		defaultModel: cfg.Model,
		client:       &http.Client{Timeout: 120 * time.Second},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		models: []string{
			"gpt-4o",
			"gpt-4o-mini",
			"gpt-4.1-mini",
		},
	}
	if p.baseURL == "" {
		p.baseURL = "https://api.openai.com/v1"
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.defaultModel == "" && len(p.models) > 0 {
		p.defaultModel = p.models[0]
	}
	return p
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return p.name
}

// AvailableModels returns list of supported models
func (p *Provider) AvailableModels() []string {
	return p.models
}

// DefaultModel returns the default model
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// IsConfigured checks if provider has valid credentials
func (p *Provider) IsConfigured() bool {
	return p.keyless || p.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Tools       []chatTool    `json:"tools,omitempty"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string         `json:"content"`
			ToolCalls []chatToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func buildRequest(req llm.ChatRequest, model string) (chatRequest, error) {
	chatReq := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, chatMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		msg := chatMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, call := range m.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil {
				return chatRequest{}, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			tc := chatToolCall{ID: call.ID, Type: "function"}
			tc.Function.Name = call.Name
			tc.Function.Arguments = string(args)
			msg.ToolCalls = append(msg.ToolCalls, tc)
		}
		chatReq.Messages = append(chatReq.Messages, msg)
	}

	for _, t := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.JSONSchema(),
			},
		})
	}

	return chatReq, nil
}

// Chat runs one chat completion turn
func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest, model string) (*llm.ChatResponse, error) {
	if model == "" {
		model = p.defaultModel
	}

	chatReq, err := buildRequest(req, model)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned status %d: %s", p.name, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	message := chatResp.Choices[0].Message
	out := &llm.ChatResponse{
		Content:    message.Content,
		Model:      model,
		TokensUsed: chatResp.Usage.TotalTokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}

	for _, tc := range message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to decode tool arguments: %w", err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	return out, nil
}
