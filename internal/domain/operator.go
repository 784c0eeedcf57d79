package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operator is a dashboard user acting on behalf of an organization
type Operator struct {
	ID             uuid.UUID `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OperatorRegister represents operator registration data. Registration also
// creates the operator's organization.
type OperatorRegister struct {
	OrganizationName string `json:"organization_name" validate:"required,max=255"`
	Name             string `json:"name" validate:"required,max=255"`
	Email            string `json:"email" validate:"required,email,max=255"`
	Password         string `json:"password" validate:"required,min=8,max=72"`
}

// OperatorLogin represents login credentials
type OperatorLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents JWT token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// OperatorRepository defines the interface for operator storage
type OperatorRepository interface {
	Create(ctx context.Context, op *Operator) error
	CreateWithOrganization(ctx context.Context, org *Organization, op *Operator) error
	GetByID(ctx context.Context, id uuid.UUID) (*Operator, error)
	GetByEmail(ctx context.Context, email string) (*Operator, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}
