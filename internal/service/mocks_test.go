package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/Rrens/support-widget/internal/agent"
	"github.com/Rrens/support-widget/internal/domain"
)

// MockConversationRepo mocks domain.ConversationRepository
type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, conversation *domain.Conversation, greeting *domain.Message) error {
	args := m.Called(ctx, conversation, greeting)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) GetByThreadID(ctx context.Context, threadID uuid.UUID) (*domain.Conversation, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListByOrganization(ctx context.Context, filter domain.ConversationFilter) ([]domain.Conversation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) ListByContactSession(ctx context.Context, contactSessionID uuid.UUID, limit, offset int) ([]domain.Conversation, error) {
	args := m.Called(ctx, contactSessionID, limit, offset)
	return args.Get(0).([]domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) AppendMessage(ctx context.Context, conversationID uuid.UUID, message *domain.Message) (*domain.Conversation, error) {
	args := m.Called(ctx, conversationID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ConversationStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// MockThreadRepo mocks domain.ThreadRepository
type MockThreadRepo struct {
	mock.Mock
}

func (m *MockThreadRepo) Append(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockThreadRepo) List(ctx context.Context, threadID uuid.UUID, opts domain.PaginationOpts) (*domain.MessagePage, error) {
	args := m.Called(ctx, threadID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessagePage), args.Error(1)
}

func (m *MockThreadRepo) Recent(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockThreadRepo) Last(ctx context.Context, threadID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// MockContactSessionRepo mocks domain.ContactSessionRepository
type MockContactSessionRepo struct {
	mock.Mock
}

func (m *MockContactSessionRepo) Create(ctx context.Context, session *domain.ContactSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockContactSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ContactSession), args.Error(1)
}

func (m *MockContactSessionRepo) UpdateExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

// MockOrganizationRepo mocks domain.OrganizationRepository
type MockOrganizationRepo struct {
	mock.Mock
}

func (m *MockOrganizationRepo) Create(ctx context.Context, org *domain.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepo) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

// MockOperatorRepo mocks domain.OperatorRepository
type MockOperatorRepo struct {
	mock.Mock
}

func (m *MockOperatorRepo) Create(ctx context.Context, op *domain.Operator) error {
	args := m.Called(ctx, op)
	return args.Error(0)
}

func (m *MockOperatorRepo) CreateWithOrganization(ctx context.Context, org *domain.Organization, op *domain.Operator) error {
	args := m.Called(ctx, org, op)
	return args.Error(0)
}

func (m *MockOperatorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operator), args.Error(1)
}

func (m *MockOperatorRepo) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Operator), args.Error(1)
}

func (m *MockOperatorRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockWidgetSettingsRepo mocks domain.WidgetSettingsRepository
type MockWidgetSettingsRepo struct {
	mock.Mock
}

func (m *MockWidgetSettingsRepo) GetByOrganization(ctx context.Context, organizationID string) (*domain.WidgetSettings, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WidgetSettings), args.Error(1)
}

func (m *MockWidgetSettingsRepo) Upsert(ctx context.Context, settings *domain.WidgetSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

// MockSettingsCache mocks SettingsCache
type MockSettingsCache struct {
	mock.Mock
}

func (m *MockSettingsCache) Get(ctx context.Context, organizationID string) (*domain.WidgetSettings, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WidgetSettings), args.Error(1)
}

func (m *MockSettingsCache) Set(ctx context.Context, settings *domain.WidgetSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockSettingsCache) Invalidate(ctx context.Context, organizationID string) error {
	args := m.Called(ctx, organizationID)
	return args.Error(0)
}

// MockPluginRepo mocks domain.PluginRepository
type MockPluginRepo struct {
	mock.Mock
}

func (m *MockPluginRepo) GetByOrganizationAndService(ctx context.Context, organizationID string, service domain.PluginService) (*domain.Plugin, error) {
	args := m.Called(ctx, organizationID, service)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plugin), args.Error(1)
}

func (m *MockPluginRepo) Upsert(ctx context.Context, plugin *domain.Plugin) error {
	args := m.Called(ctx, plugin)
	return args.Error(0)
}

func (m *MockPluginRepo) Delete(ctx context.Context, organizationID string, service domain.PluginService) error {
	args := m.Called(ctx, organizationID, service)
	return args.Error(0)
}

// MockGenerator mocks Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req agent.GenerateRequest) (*agent.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Result), args.Error(1)
}
