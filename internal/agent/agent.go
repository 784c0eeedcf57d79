package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/knowledge"
	"github.com/Rrens/support-widget/internal/llm"
)

const (
	defaultMaxSteps     = 5
	defaultHistoryLimit = 20
)

// Searcher finds knowledge entries within an organization's namespace
type Searcher interface {
	Search(ctx context.Context, namespace, query string, limit int) (*knowledge.SearchResult, error)
}

// HistoryReader loads the tail of a thread in append order
type HistoryReader interface {
	Recent(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.Message, error)
}

// Config tunes a support agent
type Config struct {
	Model        string
	MaxSteps     int
	HistoryLimit int
	SearchLimit  int
	Temperature  float32
}

// SupportAgent answers visitor messages with a bounded tool loop. It never
// writes to the thread or changes conversation status; the caller persists
// the reply and applies the emitted transition.
type SupportAgent struct {
	provider llm.Provider
	searcher Searcher
	history  HistoryReader
	cfg      Config
}

// NewSupportAgent creates a support agent
func NewSupportAgent(provider llm.Provider, searcher Searcher, history HistoryReader, cfg Config) *SupportAgent {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = defaultMaxSteps
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel()
	}
	return &SupportAgent{
		provider: provider,
		searcher: searcher,
		history:  history,
		cfg:      cfg,
	}
}

// GenerateRequest identifies the conversation a reply is generated for
type GenerateRequest struct {
	ConversationID uuid.UUID
	OrganizationID string
	ThreadID       uuid.UUID
	Prompt         string
}

// Result is the outcome of one generation
type Result struct {
	Reply      string
	Transition *domain.StatusEvent
	ToolCalls  []string
	Model      string
	TokensUsed int
	Steps      int
	LatencyMs  int64
}

// Generate runs the tool loop until the model answers without tool calls or
// the step bound is reached. When the bound is reached the last model text is
// returned together with any transition already emitted.
func (a *SupportAgent) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	start := time.Now()

	messages, err := a.buildMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	tools := newToolbox(req.OrganizationID, a.searcher, a.cfg.SearchLimit, a.provider, a.cfg.Model)
	result := &Result{Model: a.cfg.Model}

	for step := 0; step < a.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}

		resp, err := a.provider.Chat(ctx, llm.ChatRequest{
			System:      llm.SupportAgentInstructions,
			Messages:    messages,
			Tools:       tools.definitions(),
			Temperature: a.cfg.Temperature,
		}, a.cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to generate reply: %w", err)
		}

		result.Steps = step + 1
		result.TokensUsed += resp.TokensUsed
		if resp.Model != "" {
			result.Model = resp.Model
		}
		result.Reply = strings.TrimSpace(resp.Content)

		if !resp.HasToolCalls() {
			break
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			output, err := tools.execute(ctx, call)
			if err != nil {
				output = fmt.Sprintf("Error: %v", err)
				log.Warn().Err(err).
					Str("conversation_id", req.ConversationID.String()).
					Str("tool", call.Name).
					Msg("Agent tool call failed")
			} else {
				result.ToolCalls = append(result.ToolCalls, call.Name)
				log.Debug().
					Str("conversation_id", req.ConversationID.String()).
					Str("tool", call.Name).
					Int("result_len", len(output)).
					Msg("Agent tool call")
			}

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}

		if step == a.cfg.MaxSteps-1 {
			log.Warn().
				Str("conversation_id", req.ConversationID.String()).
				Int("max_steps", a.cfg.MaxSteps).
				Msg("Agent reached step limit")
		}
	}

	result.Transition = tools.transition
	result.LatencyMs = time.Since(start).Milliseconds()
	return result, nil
}

func (a *SupportAgent) buildMessages(ctx context.Context, req GenerateRequest) ([]llm.Message, error) {
	var history []domain.Message
	if a.history != nil {
		var err error
		history, err = a.history.Recent(ctx, req.ThreadID, a.cfg.HistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: m.Content})
	}

	// The prompt is normally the last stored message already.
	if n := len(history); n == 0 || history[n-1].Role != domain.RoleUser || history[n-1].Content != req.Prompt {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: req.Prompt})
	}

	return messages, nil
}
