package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

// ContactSessionRepository implements domain.ContactSessionRepository
type ContactSessionRepository struct {
	db *DB
}

// NewContactSessionRepository creates a new contact session repository
func NewContactSessionRepository(db *DB) *ContactSessionRepository {
	return &ContactSessionRepository{db: db}
}

// Create inserts a contact session
func (r *ContactSessionRepository) Create(ctx context.Context, session *domain.ContactSession) error {
	metadata, err := json.Marshal(session.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO contact_sessions (id, organization_id, name, email, metadata, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		session.ID,
		session.OrganizationID,
		session.Name,
		session.Email,
		metadata,
		session.ExpiresAt,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact session: %w", err)
	}
	return nil
}

// GetByID retrieves a contact session by ID
func (r *ContactSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	query := `
		SELECT id, organization_id, name, email, metadata, expires_at, created_at
		FROM contact_sessions
		WHERE id = $1
	`

	var session domain.ContactSession
	var metadataJSON []byte

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.OrganizationID,
		&session.Name,
		&session.Email,
		&metadataJSON,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &session.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &session, nil
}

// UpdateExpiresAt moves the session expiration
func (r *ContactSessionRepository) UpdateExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `UPDATE contact_sessions SET expires_at = $1 WHERE id = $2`, expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update contact session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("contact session %s", id)
	}
	return nil
}
