package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContactSession is a visitor's anonymous, time-bounded identity
type ContactSession struct {
	ID             uuid.UUID       `json:"id"`
	OrganizationID string          `json:"organization_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Metadata       SessionMetadata `json:"metadata"`
	ExpiresAt      time.Time       `json:"expires_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsValid reports whether the session is still usable at now.
func (s *ContactSession) IsValid(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

// SessionMetadata is browser context reported by the widget
type SessionMetadata struct {
	UserAgent        string `json:"userAgent,omitempty"`
	Language         string `json:"language,omitempty"`
	Languages        string `json:"languages,omitempty"`
	Platform         string `json:"platform,omitempty"`
	Vendor           string `json:"vendor,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	ViewportSize     string `json:"viewportSize,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	TimezoneOffset   int    `json:"timezoneOffset,omitempty"`
	CookieEnabled    bool   `json:"cookieEnabled,omitempty"`
	Referrer         string `json:"referrer,omitempty"`
	CurrentURL       string `json:"currentUrl,omitempty"`
}

// ContactSessionCreate is submitted by the widget's visitor auth form
type ContactSessionCreate struct {
	OrganizationID string          `json:"organization_id" validate:"required,max=255"`
	Name           string          `json:"name" validate:"required,max=255"`
	Email          string          `json:"email" validate:"required,email,max=255"`
	Metadata       SessionMetadata `json:"metadata"`
}

// SessionValidation is the result of validating a contact session id
type SessionValidation struct {
	Valid bool `json:"valid"`
}

// ContactSessionRepository defines the interface for contact session storage
type ContactSessionRepository interface {
	Create(ctx context.Context, session *ContactSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*ContactSession, error)
	UpdateExpiresAt(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
}
