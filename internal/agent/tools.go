package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/llm"
)

// Tool names advertised to the model
const (
	ToolSearch               = "search"
	ToolResolveConversation  = "resolveConversation"
	ToolEscalateConversation = "escalateConversation"
)

var (
	errToolUsed          = errors.New("tool already used in this reply")
	errTransitionEmitted = errors.New("conversation status was already changed in this reply")
)

// toolbox holds the per-generation tool state. Each tool runs at most once and
// at most one status tool is recorded.
type toolbox struct {
	namespace   string
	searcher    Searcher
	searchLimit int
	interpreter llm.Provider
	model       string

	used       map[string]bool
	transition *domain.StatusEvent
}

func newToolbox(namespace string, searcher Searcher, searchLimit int, interpreter llm.Provider, model string) *toolbox {
	return &toolbox{
		namespace:   namespace,
		searcher:    searcher,
		searchLimit: searchLimit,
		interpreter: interpreter,
		model:       model,
		used:        make(map[string]bool),
	}
}

func (t *toolbox) definitions() []llm.ToolDefinition {
	return []llm.ToolDefinition{
		{
			Name:        ToolSearch,
			Description: "Search the knowledge base for relevant information to help answer a question.",
			Parameters: []llm.ToolParameter{
				{Name: "query", Description: "The search query to find information", Required: true},
			},
		},
		{
			Name:        ToolResolveConversation,
			Description: "Mark the conversation as resolved once the customer confirms the issue is solved.",
		},
		{
			Name:        ToolEscalateConversation,
			Description: "Hand the conversation to a human operator.",
		},
	}
}

func (t *toolbox) execute(ctx context.Context, call llm.ToolCall) (string, error) {
	if t.used[call.Name] {
		return "", errToolUsed
	}

	var (
		output string
		err    error
	)
	switch call.Name {
	case ToolSearch:
		output, err = t.search(ctx, call.Arguments)
	case ToolResolveConversation:
		output, err = t.emit(domain.EventAgentResolve, "Conversation resolved")
	case ToolEscalateConversation:
		output, err = t.emit(domain.EventAgentEscalate, "Conversation escalated to a human operator")
	default:
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
	if err != nil {
		return "", err
	}

	t.used[call.Name] = true
	return output, nil
}

func (t *toolbox) emit(event domain.StatusEvent, output string) (string, error) {
	if t.transition != nil {
		return "", errTransitionEmitted
	}
	t.transition = &event
	return output, nil
}

func (t *toolbox) search(ctx context.Context, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return "", errors.New("query is required")
	}
	if t.searcher == nil {
		return "The knowledge base is not available.", nil
	}

	result, err := t.searcher.Search(ctx, t.namespace, query, t.searchLimit)
	if err != nil {
		return "", err
	}
	if len(result.Entries) == 0 {
		return "No relevant information was found in the knowledge base.", nil
	}

	resp, err := llm.Complete(ctx, t.interpreter, t.model,
		llm.SearchInterpreterInstructions,
		llm.BuildSearchPrompt(query, result.Titles(), result.Text))
	if err != nil {
		return "", fmt.Errorf("failed to interpret search results: %w", err)
	}

	return strings.TrimSpace(resp.Content), nil
}
