package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

// OperatorRepository implements domain.OperatorRepository
type OperatorRepository struct {
	db *DB
}

// NewOperatorRepository creates a new operator repository
func NewOperatorRepository(db *DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

const operatorColumns = `id, organization_id, email, name, password_hash, created_at, updated_at`

// Create inserts an operator
func (r *OperatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	query := `
		INSERT INTO operators (` + operatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		op.ID,
		op.OrganizationID,
		op.Email,
		op.Name,
		op.PasswordHash,
		op.CreatedAt,
		op.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

// CreateWithOrganization inserts a new organization and its first operator atomically
func (r *OperatorRepository) CreateWithOrganization(ctx context.Context, org *domain.Organization, op *domain.Operator) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := createOrganization(ctx, tx, org); err != nil {
			return err
		}
		query := `
			INSERT INTO operators (` + operatorColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, query,
			op.ID, op.OrganizationID, op.Email, op.Name, op.PasswordHash, op.CreatedAt, op.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create operator: %w", err)
		}
		return nil
	})
}

// GetByID retrieves an operator by ID
func (r *OperatorRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Operator, error) {
	return r.getOne(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id)
}

// GetByEmail retrieves an operator by email
func (r *OperatorRepository) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	return r.getOne(ctx, `SELECT `+operatorColumns+` FROM operators WHERE email = $1`, email)
}

func (r *OperatorRepository) getOne(ctx context.Context, query string, arg any) (*domain.Operator, error) {
	var op domain.Operator
	err := r.db.Pool.QueryRow(ctx, query, arg).Scan(
		&op.ID,
		&op.OrganizationID,
		&op.Email,
		&op.Name,
		&op.PasswordHash,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return &op, nil
}

// EmailExists checks if an email is already registered
func (r *OperatorRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM operators WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return exists, nil
}
