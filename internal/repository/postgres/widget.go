package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

// WidgetSettingsRepository implements domain.WidgetSettingsRepository
type WidgetSettingsRepository struct {
	db *DB
}

// NewWidgetSettingsRepository creates a new widget settings repository
func NewWidgetSettingsRepository(db *DB) *WidgetSettingsRepository {
	return &WidgetSettingsRepository{db: db}
}

// GetByOrganization retrieves an organization's widget settings
func (r *WidgetSettingsRepository) GetByOrganization(ctx context.Context, organizationID string) (*domain.WidgetSettings, error) {
	query := `
		SELECT organization_id, greet_message, default_suggestions, vapi_settings, updated_at
		FROM widget_settings
		WHERE organization_id = $1
	`

	var s domain.WidgetSettings
	var suggestionsJSON, vapiJSON []byte

	err := r.db.Pool.QueryRow(ctx, query, organizationID).Scan(
		&s.OrganizationID,
		&s.GreetMessage,
		&suggestionsJSON,
		&vapiJSON,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get widget settings: %w", err)
	}

	if len(suggestionsJSON) > 0 {
		if err := json.Unmarshal(suggestionsJSON, &s.DefaultSuggestions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
		}
	}
	if len(vapiJSON) > 0 {
		if err := json.Unmarshal(vapiJSON, &s.VapiSettings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vapi settings: %w", err)
		}
	}

	return &s, nil
}

// Upsert creates or replaces an organization's widget settings
func (r *WidgetSettingsRepository) Upsert(ctx context.Context, s *domain.WidgetSettings) error {
	suggestions, err := json.Marshal(s.DefaultSuggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}
	vapi, err := json.Marshal(s.VapiSettings)
	if err != nil {
		return fmt.Errorf("failed to marshal vapi settings: %w", err)
	}

	query := `
		INSERT INTO widget_settings (organization_id, greet_message, default_suggestions, vapi_settings, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id) DO UPDATE
		SET greet_message = EXCLUDED.greet_message,
			default_suggestions = EXCLUDED.default_suggestions,
			vapi_settings = EXCLUDED.vapi_settings,
			updated_at = EXCLUDED.updated_at
	`
	_, err = r.db.Pool.Exec(ctx, query, s.OrganizationID, s.GreetMessage, suggestions, vapi, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert widget settings: %w", err)
	}
	return nil
}

// PluginRepository implements domain.PluginRepository
type PluginRepository struct {
	db *DB
}

// NewPluginRepository creates a new plugin repository
func NewPluginRepository(db *DB) *PluginRepository {
	return &PluginRepository{db: db}
}

// GetByOrganizationAndService retrieves a plugin row
func (r *PluginRepository) GetByOrganizationAndService(ctx context.Context, organizationID string, service domain.PluginService) (*domain.Plugin, error) {
	query := `
		SELECT id, organization_id, service, secret_ciphertext, created_at, updated_at
		FROM plugins
		WHERE organization_id = $1 AND service = $2
	`

	var p domain.Plugin
	var svc string
	err := r.db.Pool.QueryRow(ctx, query, organizationID, string(service)).Scan(
		&p.ID,
		&p.OrganizationID,
		&svc,
		&p.SecretCiphertext,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get plugin: %w", err)
	}
	p.Service = domain.PluginService(svc)
	return &p, nil
}

// Upsert creates or replaces a plugin's secret
func (r *PluginRepository) Upsert(ctx context.Context, p *domain.Plugin) error {
	query := `
		INSERT INTO plugins (id, organization_id, service, secret_ciphertext, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_id, service) DO UPDATE
		SET secret_ciphertext = EXCLUDED.secret_ciphertext,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Pool.Exec(ctx, query,
		p.ID,
		p.OrganizationID,
		string(p.Service),
		p.SecretCiphertext,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert plugin: %w", err)
	}
	return nil
}

// Delete removes a plugin
func (r *PluginRepository) Delete(ctx context.Context, organizationID string, service domain.PluginService) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM plugins WHERE organization_id = $1 AND service = $2`, organizationID, string(service))
	if err != nil {
		return fmt.Errorf("failed to delete plugin: %w", err)
	}
	return nil
}
