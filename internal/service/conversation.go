package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/agent"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/events"
	"github.com/Rrens/support-widget/internal/llm"
	"github.com/Rrens/support-widget/internal/security"
)

const (
	maxTransitionAttempts = 3
	defaultListLimit      = 20
	maxListLimit          = 100
)

// Generator produces an agent reply for a visitor message
type Generator interface {
	Generate(ctx context.Context, req agent.GenerateRequest) (*agent.Result, error)
}

// SettingsReader resolves an organization's widget settings
type SettingsReader interface {
	GetSettings(ctx context.Context, organizationID string) (*domain.WidgetSettings, error)
}

// ConversationService is the conversation lifecycle manager. It gates every
// inbound message on the conversation's status, dispatches visitor messages to
// the agent and owns status transitions.
type ConversationService struct {
	conversations domain.ConversationRepository
	threads       domain.ThreadRepository
	sessions      domain.ContactSessionRepository
	settings      SettingsReader
	generator     Generator
	enhancer      llm.Provider
	publisher     events.Publisher
	sanitizer     *security.MessageSanitizer
	now           func() time.Time
}

// NewConversationService creates a new conversation service. generator and
// enhancer may be nil when no LLM provider is configured.
func NewConversationService(
	conversations domain.ConversationRepository,
	threads domain.ThreadRepository,
	sessions domain.ContactSessionRepository,
	settings SettingsReader,
	generator Generator,
	enhancer llm.Provider,
	publisher events.Publisher,
	sanitizer *security.MessageSanitizer,
) *ConversationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if sanitizer == nil {
		sanitizer = security.NewMessageSanitizer(0)
	}
	return &ConversationService{
		conversations: conversations,
		threads:       threads,
		sessions:      sessions,
		settings:      settings,
		generator:     generator,
		enhancer:      enhancer,
		publisher:     publisher,
		sanitizer:     sanitizer,
		now:           time.Now,
	}
}

// Create starts a conversation for a contact session, seeded with the
// organization's greeting
func (s *ConversationService) Create(ctx context.Context, organizationID string, contactSessionID uuid.UUID) (*domain.Conversation, error) {
	session, err := s.validSession(ctx, contactSessionID)
	if err != nil {
		return nil, err
	}
	if session.OrganizationID != organizationID {
		return nil, domain.Unauthorizedf("contact session belongs to another organization")
	}

	greeting := domain.DefaultGreeting
	if s.settings != nil {
		settings, err := s.settings.GetSettings(ctx, organizationID)
		if err != nil {
			log.Warn().Err(err).Str("organization_id", organizationID).Msg("Failed to load widget settings, using default greeting")
		} else {
			greeting = settings.Greeting()
		}
	}

	now := s.now().UTC()
	conversation := &domain.Conversation{
		ID:               uuid.New(),
		OrganizationID:   organizationID,
		ContactSessionID: contactSessionID,
		ThreadID:         uuid.New(),
		Status:           domain.StatusUnresolved,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	message := &domain.Message{
		ID:        uuid.New(),
		ThreadID:  conversation.ThreadID,
		Role:      domain.RoleAssistant,
		Content:   greeting,
		CreatedAt: now,
	}

	if err := s.conversations.Create(ctx, conversation, message); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.publish(ctx, events.Event{
		Type:           events.ConversationCreated,
		OrganizationID: organizationID,
		ConversationID: conversation.ID,
		Status:         conversation.Status,
	})

	return conversation, nil
}

// ListForVisitor returns the visitor's conversations, newest first, with their
// last message
func (s *ConversationService) ListForVisitor(ctx context.Context, contactSessionID uuid.UUID, limit, offset int) ([]domain.ConversationSummary, error) {
	if _, err := s.validSession(ctx, contactSessionID); err != nil {
		return nil, err
	}

	limit, offset = clampPage(limit, offset)
	conversations, err := s.conversations.ListByContactSession(ctx, contactSessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return s.summarize(ctx, conversations, false)
}

// ListForOrganization returns an organization's conversations with their last
// message and contact session
func (s *ConversationService) ListForOrganization(ctx context.Context, filter domain.ConversationFilter) ([]domain.ConversationSummary, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.InvalidStatef("unknown status %q", *filter.Status)
	}

	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)
	conversations, err := s.conversations.ListByOrganization(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	return s.summarize(ctx, conversations, true)
}

// Get returns a conversation the principal may read
func (s *ConversationService) Get(ctx context.Context, principal domain.Principal, conversationID uuid.UUID) (*domain.ConversationSummary, error) {
	conversation, err := s.authorize(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}

	summaries, err := s.summarize(ctx, []domain.Conversation{*conversation}, principal.Role == domain.AuthorOperator)
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

// ListMessages returns a page of the conversation's thread, newest first
func (s *ConversationService) ListMessages(ctx context.Context, principal domain.Principal, conversationID uuid.UUID, opts domain.PaginationOpts) (*domain.MessagePage, error) {
	conversation, err := s.authorize(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}

	page, err := s.threads.List(ctx, conversation.ThreadID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return page, nil
}

// SubmitMessage appends a message to a conversation. Visitor messages trigger
// agent generation iff the conversation was unresolved when the message was
// appended; operator messages never do.
func (s *ConversationService) SubmitMessage(ctx context.Context, principal domain.Principal, conversationID uuid.UUID, text string) (*domain.SubmitResult, error) {
	conversation, err := s.authorize(ctx, principal, conversationID)
	if err != nil {
		return nil, err
	}
	if conversation.Status == domain.StatusResolved {
		return nil, domain.InvalidStatef("conversation is resolved")
	}

	content, err := s.sanitizer.Sanitize(text)
	if err != nil {
		return nil, err
	}

	message := &domain.Message{
		ID:        uuid.New(),
		ThreadID:  conversation.ThreadID,
		Role:      domain.RoleUser,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if principal.Role == domain.AuthorOperator {
		message.Role = domain.RoleAssistant
		message.AgentName = principal.OperatorName
	}

	// The repository re-checks the status under a row lock, so the status
	// returned here is the one the message was appended under.
	locked, err := s.conversations.AppendMessage(ctx, conversation.ID, message)
	if err != nil {
		return nil, err
	}
	s.publishMessage(ctx, locked, message)

	result := &domain.SubmitResult{
		Message: message,
		Status:  locked.Status,
	}

	if principal.Role != domain.AuthorVisitor || locked.Status != domain.StatusUnresolved || s.generator == nil {
		return result, nil
	}

	s.generate(ctx, locked, message, result)
	return result, nil
}

// generate runs the agent, appends its reply and applies at most one emitted
// transition. Agent failures leave the visitor message in place.
func (s *ConversationService) generate(ctx context.Context, conversation *domain.Conversation, prompt *domain.Message, result *domain.SubmitResult) {
	gen, err := s.generator.Generate(ctx, agent.GenerateRequest{
		ConversationID: conversation.ID,
		OrganizationID: conversation.OrganizationID,
		ThreadID:       conversation.ThreadID,
		Prompt:         prompt.Content,
	})
	if err != nil {
		log.Error().Err(err).Str("conversation_id", conversation.ID.String()).Msg("Agent generation failed")
		return
	}
	result.Generated = true

	log.Info().
		Str("conversation_id", conversation.ID.String()).
		Str("model", gen.Model).
		Int("steps", gen.Steps).
		Int("tokens", gen.TokensUsed).
		Strs("tools", gen.ToolCalls).
		Msg("Agent replied")

	reply := gen.Reply
	if reply == "" && gen.Transition != nil {
		reply = transitionReply(*gen.Transition)
	}

	if reply != "" {
		message := &domain.Message{
			ID:        uuid.New(),
			ThreadID:  conversation.ThreadID,
			Role:      domain.RoleAssistant,
			Content:   reply,
			CreatedAt: s.now().UTC(),
		}
		updated, err := s.conversations.AppendMessage(ctx, conversation.ID, message)
		switch {
		case errors.Is(err, domain.ErrInvalidState):
			log.Warn().Str("conversation_id", conversation.ID.String()).Msg("Conversation resolved during generation, reply dropped")
		case err != nil:
			log.Error().Err(err).Str("conversation_id", conversation.ID.String()).Msg("Failed to append agent reply")
		default:
			result.Reply = message
			s.publishMessage(ctx, updated, message)
		}
	}

	if gen.Transition == nil {
		return
	}

	change, err := s.applyTransition(ctx, conversation.ID, *gen.Transition)
	if err != nil {
		log.Error().Err(err).
			Str("conversation_id", conversation.ID.String()).
			Str("event", string(*gen.Transition)).
			Msg("Failed to apply agent transition")
		return
	}
	if change != nil {
		result.Transition = change
		result.Status = change.To
	}
}

// applyTransition moves the conversation along event with a compare-and-set,
// re-reading the status when another writer got there first. A transition that
// leaves the status unchanged returns nil.
func (s *ConversationService) applyTransition(ctx context.Context, conversationID uuid.UUID, event domain.StatusEvent) (*domain.StatusChange, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		conversation, err := s.conversations.GetByID(ctx, conversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		if conversation == nil {
			return nil, domain.NotFoundf("conversation %s", conversationID)
		}

		next, err := conversation.Status.Next(event)
		if err != nil {
			return nil, err
		}
		if next == conversation.Status {
			return nil, nil
		}

		ok, err := s.conversations.UpdateStatus(ctx, conversationID, conversation.Status, next)
		if err != nil {
			return nil, fmt.Errorf("failed to update status: %w", err)
		}
		if !ok {
			continue
		}

		change := &domain.StatusChange{From: conversation.Status, To: next, Event: event}
		s.publish(ctx, events.Event{
			Type:           events.ConversationStatusChanged,
			OrganizationID: conversation.OrganizationID,
			ConversationID: conversationID,
			Status:         next,
			PreviousStatus: conversation.Status,
		})
		return change, nil
	}

	return nil, domain.InvalidStatef("conversation status changed concurrently")
}

// UpdateStatus applies an operator's status change
func (s *ConversationService) UpdateStatus(ctx context.Context, organizationID string, conversationID uuid.UUID, status domain.ConversationStatus) (*domain.StatusChange, error) {
	if !status.Valid() {
		return nil, domain.InvalidStatef("unknown status %q", status)
	}

	conversation, err := s.authorize(ctx, domain.Principal{Role: domain.AuthorOperator, OrganizationID: organizationID}, conversationID)
	if err != nil {
		return nil, err
	}

	event, err := domain.OperatorEventFor(conversation.Status, status)
	if err != nil {
		return nil, err
	}

	ok, err := s.conversations.UpdateStatus(ctx, conversationID, conversation.Status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	if !ok {
		return nil, domain.InvalidStatef("conversation status changed concurrently")
	}

	s.publish(ctx, events.Event{
		Type:           events.ConversationStatusChanged,
		OrganizationID: organizationID,
		ConversationID: conversationID,
		Status:         status,
		PreviousStatus: conversation.Status,
	})

	return &domain.StatusChange{From: conversation.Status, To: status, Event: event}, nil
}

// EnhanceResponse rewrites an operator draft. Nothing is persisted.
func (s *ConversationService) EnhanceResponse(ctx context.Context, prompt string) (string, error) {
	if s.enhancer == nil {
		return "", errors.New("no LLM provider configured")
	}

	content, err := s.sanitizer.Sanitize(prompt)
	if err != nil {
		return "", err
	}

	resp, err := llm.Complete(ctx, s.enhancer, "", llm.EnhanceInstructions, content)
	if err != nil {
		return "", fmt.Errorf("failed to enhance response: %w", err)
	}

	enhanced := llm.CleanReply(resp.Content)
	if enhanced == "" {
		return content, nil
	}
	return enhanced, nil
}

// authorize loads the conversation and checks the principal may act on it
func (s *ConversationService) authorize(ctx context.Context, principal domain.Principal, conversationID uuid.UUID) (*domain.Conversation, error) {
	switch principal.Role {
	case domain.AuthorVisitor:
		if _, err := s.validSession(ctx, principal.ContactSessionID); err != nil {
			return nil, err
		}
	case domain.AuthorOperator:
		if principal.OrganizationID == "" {
			return nil, domain.Unauthorizedf("missing organization")
		}
	default:
		return nil, domain.Unauthorizedf("unknown principal")
	}

	conversation, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conversation == nil {
		return nil, domain.NotFoundf("conversation %s", conversationID)
	}

	switch principal.Role {
	case domain.AuthorVisitor:
		if conversation.ContactSessionID != principal.ContactSessionID {
			return nil, domain.Unauthorizedf("conversation belongs to another contact session")
		}
	case domain.AuthorOperator:
		if conversation.OrganizationID != principal.OrganizationID {
			return nil, domain.Unauthorizedf("invalid organization")
		}
	}

	return conversation, nil
}

func (s *ConversationService) validSession(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}
	if !session.IsValid(s.now()) {
		return nil, domain.Unauthorizedf("contact session not found or expired")
	}
	return session, nil
}

func (s *ConversationService) summarize(ctx context.Context, conversations []domain.Conversation, withSession bool) ([]domain.ConversationSummary, error) {
	summaries := make([]domain.ConversationSummary, 0, len(conversations))
	sessions := make(map[uuid.UUID]*domain.ContactSession)

	for _, c := range conversations {
		summary := domain.ConversationSummary{Conversation: c}

		last, err := s.threads.Last(ctx, c.ThreadID)
		if err != nil {
			return nil, fmt.Errorf("failed to get last message: %w", err)
		}
		summary.LastMessage = last

		if withSession {
			session, ok := sessions[c.ContactSessionID]
			if !ok {
				session, err = s.sessions.GetByID(ctx, c.ContactSessionID)
				if err != nil {
					return nil, fmt.Errorf("failed to get contact session: %w", err)
				}
				sessions[c.ContactSessionID] = session
			}
			summary.ContactSession = session
		}

		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func (s *ConversationService) publishMessage(ctx context.Context, conversation *domain.Conversation, message *domain.Message) {
	id := message.ID
	s.publish(ctx, events.Event{
		Type:           events.MessageAppended,
		OrganizationID: conversation.OrganizationID,
		ConversationID: conversation.ID,
		Status:         conversation.Status,
		MessageID:      &id,
		Role:           message.Role,
	})
}

func (s *ConversationService) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("conversation_id", event.ConversationID.String()).
			Msg("Failed to publish event")
	}
}

func transitionReply(event domain.StatusEvent) string {
	if event == domain.EventAgentEscalate {
		return "I've passed your conversation to our support team. Someone will be with you shortly."
	}
	return "Glad I could help! This conversation has been marked as resolved."
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
