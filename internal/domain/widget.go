package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultGreeting seeds new threads when an organization has no greeting configured.
const DefaultGreeting = "Hello, how can I help you today?"

// WidgetSettings is per-organization widget configuration
type WidgetSettings struct {
	OrganizationID     string             `json:"organization_id"`
	GreetMessage       string             `json:"greet_message"`
	DefaultSuggestions DefaultSuggestions `json:"default_suggestions"`
	VapiSettings       VapiSettings       `json:"vapi_settings"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Greeting returns the configured greeting or the default one.
func (s *WidgetSettings) Greeting() string {
	if s == nil || s.GreetMessage == "" {
		return DefaultGreeting
	}
	return s.GreetMessage
}

// DefaultSuggestions are up to three quick replies shown by the widget
type DefaultSuggestions struct {
	Suggestion1 string `json:"suggestion1,omitempty" validate:"max=255"`
	Suggestion2 string `json:"suggestion2,omitempty" validate:"max=255"`
	Suggestion3 string `json:"suggestion3,omitempty" validate:"max=255"`
}

// VapiSettings binds the widget to a voice assistant and phone number
type VapiSettings struct {
	AssistantID string `json:"assistant_id,omitempty" validate:"max=255"`
	PhoneNumber string `json:"phone_number,omitempty" validate:"max=255"`
}

// WidgetSettingsUpsert is the operator's settings form
type WidgetSettingsUpsert struct {
	GreetMessage       string             `json:"greet_message" validate:"required,max=1000"`
	DefaultSuggestions DefaultSuggestions `json:"default_suggestions"`
	VapiSettings       VapiSettings       `json:"vapi_settings"`
}

// WidgetSettingsRepository defines the interface for widget settings storage
type WidgetSettingsRepository interface {
	GetByOrganization(ctx context.Context, organizationID string) (*WidgetSettings, error)
	Upsert(ctx context.Context, settings *WidgetSettings) error
}

// PluginService names a third-party integration
type PluginService string

const PluginVapi PluginService = "vapi"

// Plugin stores an organization's encrypted integration secret
type Plugin struct {
	ID               uuid.UUID     `json:"id"`
	OrganizationID   string        `json:"organization_id"`
	Service          PluginService `json:"service"`
	SecretCiphertext []byte        `json:"-"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// VapiSecrets are the voice provider keys entered by an operator
type VapiSecrets struct {
	PublicAPIKey  string `json:"publicApiKey" validate:"required,max=512"`
	PrivateAPIKey string `json:"privateApiKey" validate:"required,max=512"`
}

// VoiceCredentials is the subset of voice secrets safe to hand to the widget
type VoiceCredentials struct {
	PublicAPIKey string `json:"publicApiKey"`
}

// PluginRepository defines the interface for plugin storage
type PluginRepository interface {
	GetByOrganizationAndService(ctx context.Context, organizationID string, service PluginService) (*Plugin, error)
	Upsert(ctx context.Context, plugin *Plugin) error
	Delete(ctx context.Context, organizationID string, service PluginService) error
}
