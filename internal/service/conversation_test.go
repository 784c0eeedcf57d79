package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/support-widget/internal/agent"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/events"
	"github.com/Rrens/support-widget/internal/llm"
	"github.com/Rrens/support-widget/internal/security"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubSettings struct {
	settings *domain.WidgetSettings
	err      error
}

func (s stubSettings) GetSettings(context.Context, string) (*domain.WidgetSettings, error) {
	return s.settings, s.err
}

type stubProvider struct {
	content string
	last    llm.ChatRequest
}

func (p *stubProvider) Name() string              { return "stub" }
func (p *stubProvider) AvailableModels() []string { return []string{"stub-1"} }
func (p *stubProvider) DefaultModel() string      { return "stub-1" }
func (p *stubProvider) IsConfigured() bool        { return true }
func (p *stubProvider) Chat(_ context.Context, req llm.ChatRequest, _ string) (*llm.ChatResponse, error) {
	p.last = req
	return &llm.ChatResponse{Content: p.content}, nil
}

type convFixture struct {
	svc      *ConversationService
	convs    *MockConversationRepo
	threads  *MockThreadRepo
	sessions *MockContactSessionRepo
	gen      *MockGenerator
	recorder *events.Recorder
	session  *domain.ContactSession
	conv     *domain.Conversation
}

func newConvFixture(status domain.ConversationStatus) *convFixture {
	f := &convFixture{
		convs:    new(MockConversationRepo),
		threads:  new(MockThreadRepo),
		sessions: new(MockContactSessionRepo),
		gen:      new(MockGenerator),
		recorder: &events.Recorder{},
	}
	f.session = &domain.ContactSession{
		ID:             uuid.New(),
		OrganizationID: "org_acme",
		ExpiresAt:      testNow.Add(time.Hour),
	}
	f.conv = &domain.Conversation{
		ID:               uuid.New(),
		OrganizationID:   "org_acme",
		ContactSessionID: f.session.ID,
		ThreadID:         uuid.New(),
		Status:           status,
	}

	f.svc = NewConversationService(f.convs, f.threads, f.sessions, stubSettings{}, f.gen, &stubProvider{}, f.recorder, security.NewMessageSanitizer(0))
	f.svc.now = func() time.Time { return testNow }

	f.sessions.On("GetByID", mock.Anything, f.session.ID).Return(f.session, nil)
	return f
}

func (f *convFixture) visitor() domain.Principal {
	return domain.VisitorPrincipal(f.session.ID)
}

func (f *convFixture) operator() domain.Principal {
	return domain.OperatorPrincipal(uuid.New(), "org_acme", "Dana")
}

func withStatus(c *domain.Conversation, status domain.ConversationStatus) *domain.Conversation {
	cp := *c
	cp.Status = status
	return &cp
}

func byRole(role domain.MessageRole) any {
	return mock.MatchedBy(func(m *domain.Message) bool { return m.Role == role })
}

func TestSubmitMessage_ResolvedRejectsBothRoles(t *testing.T) {
	for _, role := range []domain.AuthorRole{domain.AuthorVisitor, domain.AuthorOperator} {
		t.Run(string(role), func(t *testing.T) {
			f := newConvFixture(domain.StatusResolved)
			f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

			principal := f.visitor()
			if role == domain.AuthorOperator {
				principal = f.operator()
			}

			_, err := f.svc.SubmitMessage(context.Background(), principal, f.conv.ID, "hello")
			assert.ErrorIs(t, err, domain.ErrInvalidState)

			f.convs.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
			f.convs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitMessage_ResolvedUnderLock(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).
		Return(nil, domain.InvalidStatef("conversation is resolved"))

	_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	assert.Empty(t, f.recorder.Events())
}

func TestSubmitMessage_Dispatch(t *testing.T) {
	tests := []struct {
		name         string
		role         domain.AuthorRole
		status       domain.ConversationStatus
		wantGenerate bool
	}{
		{"visitor unresolved", domain.AuthorVisitor, domain.StatusUnresolved, true},
		{"visitor escalated", domain.AuthorVisitor, domain.StatusEscalated, false},
		{"operator unresolved", domain.AuthorOperator, domain.StatusUnresolved, false},
		{"operator escalated", domain.AuthorOperator, domain.StatusEscalated, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConvFixture(tt.status)
			f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
			f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).Return(f.conv, nil)
			f.gen.On("Generate", mock.Anything, mock.AnythingOfType("agent.GenerateRequest")).
				Return(&agent.Result{Reply: "Here to help"}, nil)

			principal := f.visitor()
			if tt.role == domain.AuthorOperator {
				principal = f.operator()
			}

			result, err := f.svc.SubmitMessage(context.Background(), principal, f.conv.ID, "  hello  ")
			require.NoError(t, err)
			assert.Equal(t, "hello", result.Message.Content)
			assert.Equal(t, tt.wantGenerate, result.Generated)

			if tt.wantGenerate {
				f.gen.AssertNumberOfCalls(t, "Generate", 1)
				f.convs.AssertNumberOfCalls(t, "AppendMessage", 2)
				require.NotNil(t, result.Reply)
				assert.Equal(t, "Here to help", result.Reply.Content)
				assert.Equal(t, domain.RoleAssistant, result.Reply.Role)
			} else {
				f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
				f.convs.AssertNumberOfCalls(t, "AppendMessage", 1)
				assert.Nil(t, result.Reply)
			}
		})
	}
}

func TestSubmitMessage_OperatorMessageShape(t *testing.T) {
	f := newConvFixture(domain.StatusEscalated)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, byRole(domain.RoleAssistant)).Return(f.conv, nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.operator(), f.conv.ID, "On it")
	require.NoError(t, err)

	assert.Equal(t, domain.RoleAssistant, result.Message.Role)
	assert.Equal(t, "Dana", result.Message.AgentName)
	assert.Equal(t, f.conv.ThreadID, result.Message.ThreadID)
	assert.Equal(t, []events.Type{events.MessageAppended}, f.recorder.Types())
}

func TestSubmitMessage_DispatchUsesStatusAtAppend(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).
		Return(withStatus(f.conv, domain.StatusEscalated), nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusEscalated, result.Status)
	assert.False(t, result.Generated)
	f.gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestSubmitMessage_AgentTransitionAppliedOnce(t *testing.T) {
	tests := []struct {
		name  string
		event domain.StatusEvent
		want  domain.ConversationStatus
	}{
		{"resolve", domain.EventAgentResolve, domain.StatusResolved},
		{"escalate", domain.EventAgentEscalate, domain.StatusEscalated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConvFixture(domain.StatusUnresolved)
			event := tt.event
			f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
			f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).Return(f.conv, nil)
			f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, domain.StatusUnresolved, tt.want).Return(true, nil).Once()
			f.gen.On("Generate", mock.Anything, mock.Anything).
				Return(&agent.Result{Reply: "Done", Transition: &event}, nil).Once()

			result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "thanks")
			require.NoError(t, err)

			require.NotNil(t, result.Transition)
			assert.Equal(t, domain.StatusUnresolved, result.Transition.From)
			assert.Equal(t, tt.want, result.Transition.To)
			assert.Equal(t, tt.want, result.Status)

			f.gen.AssertNumberOfCalls(t, "Generate", 1)
			f.convs.AssertNumberOfCalls(t, "UpdateStatus", 1)
			assert.Equal(t, []events.Type{
				events.MessageAppended,
				events.MessageAppended,
				events.ConversationStatusChanged,
			}, f.recorder.Types())
		})
	}
}

func TestSubmitMessage_TransitionRetriesOnConflict(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	event := domain.EventAgentResolve

	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil).Twice()
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(withStatus(f.conv, domain.StatusEscalated), nil).Once()
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).Return(f.conv, nil)
	f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, domain.StatusUnresolved, domain.StatusResolved).Return(false, nil).Once()
	f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, domain.StatusEscalated, domain.StatusResolved).Return(true, nil).Once()
	f.gen.On("Generate", mock.Anything, mock.Anything).Return(&agent.Result{Reply: "Bye", Transition: &event}, nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "all good")
	require.NoError(t, err)

	require.NotNil(t, result.Transition)
	assert.Equal(t, domain.StatusEscalated, result.Transition.From)
	assert.Equal(t, domain.StatusResolved, result.Transition.To)
	f.convs.AssertExpectations(t)
}

func TestSubmitMessage_EmptyReplyWithTransitionGetsFallback(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	event := domain.EventAgentEscalate
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).Return(f.conv, nil)
	f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, domain.StatusUnresolved, domain.StatusEscalated).Return(true, nil)
	f.gen.On("Generate", mock.Anything, mock.Anything).Return(&agent.Result{Transition: &event}, nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "I want a human")
	require.NoError(t, err)

	require.NotNil(t, result.Reply)
	assert.Contains(t, result.Reply.Content, "support team")
}

func TestSubmitMessage_EmptyReplyWithoutTransitionAppendsNothing(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, mock.Anything).Return(f.conv, nil)
	f.gen.On("Generate", mock.Anything, mock.Anything).Return(&agent.Result{}, nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hm")
	require.NoError(t, err)

	assert.True(t, result.Generated)
	assert.Nil(t, result.Reply)
	f.convs.AssertNumberOfCalls(t, "AppendMessage", 1)
}

func TestSubmitMessage_AgentFailureIsAbsorbed(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, byRole(domain.RoleUser)).Return(f.conv, nil)
	f.gen.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
	require.NoError(t, err)

	assert.False(t, result.Generated)
	assert.Equal(t, domain.StatusUnresolved, result.Status)
	f.convs.AssertNumberOfCalls(t, "AppendMessage", 1)
}

func TestSubmitMessage_ReplyDroppedWhenResolvedMeanwhile(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, byRole(domain.RoleUser)).Return(f.conv, nil)
	f.convs.On("AppendMessage", mock.Anything, f.conv.ID, byRole(domain.RoleAssistant)).
		Return(nil, domain.InvalidStatef("conversation is resolved"))
	f.gen.On("Generate", mock.Anything, mock.Anything).Return(&agent.Result{Reply: "late"}, nil)

	result, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
	require.NoError(t, err)

	assert.True(t, result.Generated)
	assert.Nil(t, result.Reply)
}

func TestSubmitMessage_Authorization(t *testing.T) {
	t.Run("expired session", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.session.ExpiresAt = testNow.Add(-time.Second)

		_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		f.convs.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		other := uuid.New()
		f.sessions.On("GetByID", mock.Anything, other).Return(nil, nil)

		_, err := f.svc.SubmitMessage(context.Background(), domain.VisitorPrincipal(other), f.conv.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("session bound to another conversation", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.conv.ContactSessionID = uuid.New()
		f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

		_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		f.convs.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("operator of another organization", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

		principal := domain.OperatorPrincipal(uuid.New(), "org_other", "Eve")
		_, err := f.svc.SubmitMessage(context.Background(), principal, f.conv.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("missing conversation", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(nil, nil)

		_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "hello")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestSubmitMessage_RejectsEmptyText(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

	_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, " \n ")
	var verr *security.ValidationError
	assert.ErrorAs(t, err, &verr)
	f.convs.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitMessage_ChecksAccessBeforeText(t *testing.T) {
	t.Run("resolved conversation with empty text", func(t *testing.T) {
		f := newConvFixture(domain.StatusResolved)
		f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

		_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, "")
		assert.ErrorIs(t, err, domain.ErrInvalidState)
		f.convs.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("foreign operator with empty text", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)

		principal := domain.OperatorPrincipal(uuid.New(), "org_other", "Eve")
		_, err := f.svc.SubmitMessage(context.Background(), principal, f.conv.ID, "")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("expired session with oversized text", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.session.ExpiresAt = testNow.Add(-time.Second)

		_, err := f.svc.SubmitMessage(context.Background(), f.visitor(), f.conv.ID, strings.Repeat("a", 1<<20))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.ConversationStatus
		to      domain.ConversationStatus
		event   domain.StatusEvent
		wantErr bool
	}{
		{"escalate", domain.StatusUnresolved, domain.StatusEscalated, domain.EventEscalate, false},
		{"resolve", domain.StatusEscalated, domain.StatusResolved, domain.EventResolve, false},
		{"reopen", domain.StatusResolved, domain.StatusUnresolved, domain.EventReopen, false},
		{"skip escalation", domain.StatusUnresolved, domain.StatusResolved, "", true},
		{"backwards", domain.StatusEscalated, domain.StatusUnresolved, "", true},
		{"same status", domain.StatusEscalated, domain.StatusEscalated, "", true},
		{"unknown status", domain.StatusUnresolved, "archived", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConvFixture(tt.from)
			f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
			f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, tt.from, tt.to).Return(true, nil)

			change, err := f.svc.UpdateStatus(context.Background(), "org_acme", f.conv.ID, tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidState)
				f.convs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.event, change.Event)
			assert.Equal(t, []events.Type{events.ConversationStatusChanged}, f.recorder.Types())
		})
	}
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.convs.On("UpdateStatus", mock.Anything, f.conv.ID, domain.StatusUnresolved, domain.StatusEscalated).Return(false, nil)

	_, err := f.svc.UpdateStatus(context.Background(), "org_acme", f.conv.ID, domain.StatusEscalated)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Empty(t, f.recorder.Events())
}

func TestCreateConversation(t *testing.T) {
	t.Run("seeds configured greeting", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.svc.settings = stubSettings{settings: &domain.WidgetSettings{GreetMessage: "Welcome to Acme!"}}
		f.convs.On("Create", mock.Anything,
			mock.MatchedBy(func(c *domain.Conversation) bool { return c.Status == domain.StatusUnresolved }),
			mock.MatchedBy(func(m *domain.Message) bool {
				return m.Role == domain.RoleAssistant && m.Content == "Welcome to Acme!"
			}),
		).Return(nil)

		conv, err := f.svc.Create(context.Background(), "org_acme", f.session.ID)
		require.NoError(t, err)
		assert.Equal(t, f.session.ID, conv.ContactSessionID)
		assert.Equal(t, []events.Type{events.ConversationCreated}, f.recorder.Types())
		f.convs.AssertExpectations(t)
	})

	t.Run("default greeting when settings fail", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.svc.settings = stubSettings{err: errors.New("redis down")}
		f.convs.On("Create", mock.Anything, mock.Anything,
			mock.MatchedBy(func(m *domain.Message) bool { return m.Content == domain.DefaultGreeting }),
		).Return(nil)

		_, err := f.svc.Create(context.Background(), "org_acme", f.session.ID)
		require.NoError(t, err)
		f.convs.AssertExpectations(t)
	})

	t.Run("expired session", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)
		f.session.ExpiresAt = testNow

		_, err := f.svc.Create(context.Background(), "org_acme", f.session.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("session of another organization", func(t *testing.T) {
		f := newConvFixture(domain.StatusUnresolved)

		_, err := f.svc.Create(context.Background(), "org_other", f.session.ID)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestListForOrganization_AttachesSessionsAndLastMessage(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	last := &domain.Message{Content: "latest"}
	f.convs.On("ListByOrganization", mock.Anything, mock.MatchedBy(func(filter domain.ConversationFilter) bool {
		return filter.OrganizationID == "org_acme" && filter.Limit == defaultListLimit
	})).Return([]domain.Conversation{*f.conv, *f.conv}, nil)
	f.threads.On("Last", mock.Anything, f.conv.ThreadID).Return(last, nil)

	summaries, err := f.svc.ListForOrganization(context.Background(), domain.ConversationFilter{OrganizationID: "org_acme"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "latest", summaries[0].LastMessage.Content)
	assert.Equal(t, f.session.ID, summaries[1].ContactSession.ID)
	f.sessions.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestListMessages_VisitorScope(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	page := &domain.MessagePage{IsDone: true}
	opts := domain.PaginationOpts{NumItems: 10}
	f.convs.On("GetByID", mock.Anything, f.conv.ID).Return(f.conv, nil)
	f.threads.On("List", mock.Anything, f.conv.ThreadID, opts).Return(page, nil)

	got, err := f.svc.ListMessages(context.Background(), f.visitor(), f.conv.ID, opts)
	require.NoError(t, err)
	assert.Same(t, page, got)
}

func TestEnhanceResponse(t *testing.T) {
	f := newConvFixture(domain.StatusUnresolved)
	provider := &stubProvider{content: `"We will refund you within 5 days."`}
	f.svc.enhancer = provider

	got, err := f.svc.EnhanceResponse(context.Background(), "refund in 5 days")
	require.NoError(t, err)
	assert.Equal(t, "We will refund you within 5 days.", got)
	assert.Equal(t, llm.EnhanceInstructions, provider.last.System)

	f.svc.enhancer = nil
	_, err = f.svc.EnhanceResponse(context.Background(), "x")
	assert.Error(t, err)
}
