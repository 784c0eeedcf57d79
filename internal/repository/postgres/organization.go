package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

// OrganizationRepository implements domain.OrganizationRepository
type OrganizationRepository struct {
	db *DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts an organization
func (r *OrganizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	return createOrganization(ctx, r.db.Pool, org)
}

func createOrganization(ctx context.Context, q querier, org *domain.Organization) error {
	query := `
		INSERT INTO organizations (id, name, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := q.Exec(ctx, query, org.ID, org.Name, org.CreatedAt); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `SELECT id, name, created_at FROM organizations WHERE id = $1`

	var org domain.Organization
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&org.ID, &org.Name, &org.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}
