package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/security"
)

// PluginService stores third-party integration secrets encrypted at rest
type PluginService struct {
	repo      domain.PluginRepository
	encryptor *security.Encryptor
}

// NewPluginService creates a new plugin service
func NewPluginService(repo domain.PluginRepository, encryptor *security.Encryptor) *PluginService {
	return &PluginService{repo: repo, encryptor: encryptor}
}

func pluginAAD(organizationID string, service domain.PluginService) []byte {
	return []byte(organizationID + "/" + string(service))
}

// UpsertVapiSecrets encrypts and stores the organization's voice keys
func (s *PluginService) UpsertVapiSecrets(ctx context.Context, organizationID string, secrets domain.VapiSecrets) (*domain.Plugin, error) {
	secrets.PublicAPIKey = strings.TrimSpace(secrets.PublicAPIKey)
	secrets.PrivateAPIKey = strings.TrimSpace(secrets.PrivateAPIKey)

	ciphertext, err := s.encryptor.EncryptJSON(secrets, pluginAAD(organizationID, domain.PluginVapi))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt secrets: %w", err)
	}

	now := time.Now().UTC()
	plugin := &domain.Plugin{
		ID:               uuid.New(),
		OrganizationID:   organizationID,
		Service:          domain.PluginVapi,
		SecretCiphertext: ciphertext,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Upsert(ctx, plugin); err != nil {
		return nil, fmt.Errorf("failed to save plugin: %w", err)
	}

	return plugin, nil
}

// GetPlugin returns the plugin row without its secret
func (s *PluginService) GetPlugin(ctx context.Context, organizationID string, service domain.PluginService) (*domain.Plugin, error) {
	plugin, err := s.repo.GetByOrganizationAndService(ctx, organizationID, service)
	if err != nil {
		return nil, fmt.Errorf("failed to get plugin: %w", err)
	}
	if plugin == nil {
		return nil, domain.NotFoundf("plugin %s", service)
	}
	return plugin, nil
}

// RemovePlugin deletes an organization's integration
func (s *PluginService) RemovePlugin(ctx context.Context, organizationID string, service domain.PluginService) error {
	if err := s.repo.Delete(ctx, organizationID, service); err != nil {
		return fmt.Errorf("failed to remove plugin: %w", err)
	}
	return nil
}

// GetVoiceCredentials returns the public voice key for the widget, or nil on
// any failure. The private key never leaves this service.
func (s *PluginService) GetVoiceCredentials(ctx context.Context, organizationID string) *domain.VoiceCredentials {
	plugin, err := s.repo.GetByOrganizationAndService(ctx, organizationID, domain.PluginVapi)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", organizationID).Msg("Failed to load voice plugin")
		return nil
	}
	if plugin == nil {
		return nil
	}

	var secrets domain.VapiSecrets
	if err := s.encryptor.DecryptJSON(plugin.SecretCiphertext, pluginAAD(organizationID, domain.PluginVapi), &secrets); err != nil {
		log.Warn().Err(err).Str("organization_id", organizationID).Msg("Failed to decrypt voice plugin secrets")
		return nil
	}
	if secrets.PublicAPIKey == "" {
		return nil
	}

	return &domain.VoiceCredentials{PublicAPIKey: secrets.PublicAPIKey}
}
