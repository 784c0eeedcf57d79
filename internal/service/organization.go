package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/support-widget/internal/domain"
)

// ReasonOrganizationNotFound is reported for unknown organization ids
const ReasonOrganizationNotFound = "Organization not found"

// OrganizationService answers organization existence checks for the widget
type OrganizationService struct {
	repo domain.OrganizationRepository
}

// NewOrganizationService creates a new organization service
func NewOrganizationService(repo domain.OrganizationRepository) *OrganizationService {
	return &OrganizationService{repo: repo}
}

// Validate reports whether id names an existing organization
func (s *OrganizationService) Validate(ctx context.Context, id string) (*domain.OrganizationValidation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrMissingOrganization
	}

	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return &domain.OrganizationValidation{Valid: false, Reason: ReasonOrganizationNotFound}, nil
	}

	return &domain.OrganizationValidation{Valid: true}, nil
}
