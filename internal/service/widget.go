package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/domain"
)

// SettingsCache is the read-through cache in front of widget settings
type SettingsCache interface {
	Get(ctx context.Context, organizationID string) (*domain.WidgetSettings, error)
	Set(ctx context.Context, settings *domain.WidgetSettings) error
	Invalidate(ctx context.Context, organizationID string) error
}

// WidgetService manages per-organization widget settings
type WidgetService struct {
	repo  domain.WidgetSettingsRepository
	cache SettingsCache
}

// NewWidgetService creates a new widget service. cache may be nil.
func NewWidgetService(repo domain.WidgetSettingsRepository, cache SettingsCache) *WidgetService {
	return &WidgetService{repo: repo, cache: cache}
}

// GetSettings returns the organization's settings, or nil when none are stored
func (s *WidgetService) GetSettings(ctx context.Context, organizationID string) (*domain.WidgetSettings, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, organizationID)
		if err != nil {
			log.Warn().Err(err).Str("organization_id", organizationID).Msg("Settings cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	settings, err := s.repo.GetByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get widget settings: %w", err)
	}

	if settings != nil && s.cache != nil {
		if err := s.cache.Set(ctx, settings); err != nil {
			log.Warn().Err(err).Str("organization_id", organizationID).Msg("Settings cache write failed")
		}
	}

	return settings, nil
}

// UpsertSettings stores the operator's settings and drops the cached copy
func (s *WidgetService) UpsertSettings(ctx context.Context, organizationID string, input domain.WidgetSettingsUpsert) (*domain.WidgetSettings, error) {
	settings := &domain.WidgetSettings{
		OrganizationID: organizationID,
		GreetMessage:   strings.TrimSpace(input.GreetMessage),
		DefaultSuggestions: domain.DefaultSuggestions{
			Suggestion1: strings.TrimSpace(input.DefaultSuggestions.Suggestion1),
			Suggestion2: strings.TrimSpace(input.DefaultSuggestions.Suggestion2),
			Suggestion3: strings.TrimSpace(input.DefaultSuggestions.Suggestion3),
		},
		VapiSettings: domain.VapiSettings{
			AssistantID: normalizeNone(input.VapiSettings.AssistantID),
			PhoneNumber: normalizeNone(input.VapiSettings.PhoneNumber),
		},
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.repo.Upsert(ctx, settings); err != nil {
		return nil, fmt.Errorf("failed to save widget settings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, organizationID); err != nil {
			log.Warn().Err(err).Str("organization_id", organizationID).Msg("Settings cache invalidation failed")
		}
	}

	return settings, nil
}

// normalizeNone maps the dashboard's "none" selection to unset
func normalizeNone(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}
