package domain

import (
	"context"
	"time"
)

// Organization is a tenant owning widgets, operators and conversations
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// OrganizationValidation is the result of checking an organization id
type OrganizationValidation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// OrganizationRepository defines the interface for organization storage
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
}
