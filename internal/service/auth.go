package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService handles operator authentication
type AuthService struct {
	operatorRepo domain.OperatorRepository
	jwtManager   *security.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(operatorRepo domain.OperatorRepository, jwtManager *security.JWTManager) *AuthService {
	return &AuthService{
		operatorRepo: operatorRepo,
		jwtManager:   jwtManager,
	}
}

// Register creates an organization together with its first operator
func (s *AuthService) Register(ctx context.Context, input domain.OperatorRegister) (*domain.Operator, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	exists, err := s.operatorRepo.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	org := &domain.Organization{
		ID:        newOrganizationID(),
		Name:      strings.TrimSpace(input.OrganizationName),
		CreatedAt: now,
	}
	operator := &domain.Operator{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		Email:          email,
		Name:           strings.TrimSpace(input.Name),
		PasswordHash:   string(hashedPassword),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.operatorRepo.CreateWithOrganization(ctx, org, operator); err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}

	return operator, nil
}

// Login authenticates an operator and returns tokens
func (s *AuthService) Login(ctx context.Context, input domain.OperatorLogin) (*domain.TokenPair, error) {
	operator, err := s.operatorRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	if operator == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(operator)
}

// Refresh exchanges a refresh token for a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	operatorID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", domain.ErrUnauthorized)
	}

	operator, err := s.operatorRepo.GetByID(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	if operator == nil {
		return nil, domain.Unauthorizedf("operator not found")
	}

	return s.issue(operator)
}

// GetOperator retrieves an operator by ID
func (s *AuthService) GetOperator(ctx context.Context, operatorID uuid.UUID) (*domain.Operator, error) {
	operator, err := s.operatorRepo.GetByID(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	if operator == nil {
		return nil, domain.NotFoundf("operator %s", operatorID)
	}
	return operator, nil
}

func (s *AuthService) issue(operator *domain.Operator) (*domain.TokenPair, error) {
	accessToken, refreshToken, expiresIn, err := s.jwtManager.GenerateTokenPair(operator.ID, operator.OrganizationID, operator.Name, operator.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

func newOrganizationID() string {
	return "org_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}
