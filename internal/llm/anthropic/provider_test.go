package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/support-widget/internal/config"
	"github.com/Rrens/support-widget/internal/llm"
)

func TestToMessages_GroupsToolResults(t *testing.T) {
	msgs := toMessages([]llm.Message{
		{Role: llm.RoleUser, Content: "help"},
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "a", Name: "search"}, {ID: "b", Name: "resolveConversation"}}},
		{Role: llm.RoleTool, ToolCallID: "a", Content: "found"},
		{Role: llm.RoleTool, ToolCallID: "b", Content: "resolved"},
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "tool_use", msgs[1].Content[0].Type)
	assert.NotNil(t, msgs[1].Content[0].Input)

	assert.Equal(t, "user", msgs[2].Role)
	require.Len(t, msgs[2].Content, 2)
	assert.Equal(t, "b", msgs[2].Content[1].ToolUseID)
}

func TestProvider_Chat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "system prompt", req.System)
		require.Len(t, req.Tools, 1)

		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Escalating now."},
				{"type": "tool_use", "id": "tu_1", "name": "escalateConversation", "input": {}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	p := NewProvider(config.AnthropicConfig{APIKey: "key"}).WithBaseURL(server.URL)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		System:   "system prompt",
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "human please"}},
		Tools:    []llm.ToolDefinition{{Name: "escalateConversation"}},
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Escalating now.", resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "escalateConversation", resp.ToolCalls[0].Name)
}
