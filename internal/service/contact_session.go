package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/domain"
)

const (
	defaultSessionDuration  = 7 * 24 * time.Hour
	defaultRefreshThreshold = 24 * time.Hour
)

// ContactSessionService manages anonymous visitor sessions
type ContactSessionService struct {
	repo             domain.ContactSessionRepository
	orgRepo          domain.OrganizationRepository
	duration         time.Duration
	refreshThreshold time.Duration
	now              func() time.Time
}

// NewContactSessionService creates a new contact session service
func NewContactSessionService(repo domain.ContactSessionRepository, orgRepo domain.OrganizationRepository, duration, refreshThreshold time.Duration) *ContactSessionService {
	if duration <= 0 {
		duration = defaultSessionDuration
	}
	if refreshThreshold <= 0 {
		refreshThreshold = defaultRefreshThreshold
	}
	return &ContactSessionService{
		repo:             repo,
		orgRepo:          orgRepo,
		duration:         duration,
		refreshThreshold: refreshThreshold,
		now:              time.Now,
	}
}

// Create starts a session for a visitor of an existing organization
func (s *ContactSessionService) Create(ctx context.Context, input domain.ContactSessionCreate) (*domain.ContactSession, error) {
	org, err := s.orgRepo.GetByID(ctx, input.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, domain.NotFoundf("organization %s", input.OrganizationID)
	}

	now := s.now().UTC()
	session := &domain.ContactSession{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.ToLower(strings.TrimSpace(input.Email)),
		Metadata:       input.Metadata,
		ExpiresAt:      now.Add(s.duration),
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create contact session: %w", err)
	}

	log.Info().
		Str("organization_id", org.ID).
		Str("contact_session_id", session.ID.String()).
		Msg("Contact session created")

	return session, nil
}

// Validate reports whether the session exists and has not expired. It never
// modifies the session.
func (s *ContactSessionService) Validate(ctx context.Context, id uuid.UUID) (*domain.SessionValidation, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}
	return &domain.SessionValidation{Valid: session.IsValid(s.now())}, nil
}

// Authenticate returns the session when it is valid, Unauthorized otherwise
func (s *ContactSessionService) Authenticate(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}
	if !session.IsValid(s.now()) {
		return nil, domain.Unauthorizedf("contact session not found or expired")
	}
	return session, nil
}

// Refresh extends a session that is close to expiry. Sessions with more than
// the refresh threshold left are returned unchanged.
func (s *ContactSessionService) Refresh(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contact session: %w", err)
	}
	if session == nil {
		return nil, domain.NotFoundf("contact session %s", id)
	}

	now := s.now()
	if !session.IsValid(now) {
		return nil, domain.InvalidStatef("contact session expired")
	}

	if session.ExpiresAt.Sub(now) >= s.refreshThreshold {
		return session, nil
	}

	expiresAt := now.UTC().Add(s.duration)
	if err := s.repo.UpdateExpiresAt(ctx, id, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to refresh contact session: %w", err)
	}
	session.ExpiresAt = expiresAt

	return session, nil
}
