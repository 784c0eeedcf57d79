package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/security"
)

type contextKey string

const (
	OperatorIDKey     contextKey = "operatorID"
	OrganizationIDKey contextKey = "organizationID"
	OperatorNameKey   contextKey = "operatorName"
	ContactSessionKey contextKey = "contactSession"
)

// ContactSessionHeader carries the visitor's session id
const ContactSessionHeader = "X-Contact-Session-ID"

// AuthMiddleware handles operator JWT authentication
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the bearer token and stores the operator in context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			response.Unauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), OperatorIDKey, claims.OperatorID)
		ctx = context.WithValue(ctx, OrganizationIDKey, claims.OrganizationID)
		ctx = context.WithValue(ctx, OperatorNameKey, claims.Name)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetOperator returns the authenticated operator as a principal
func GetOperator(ctx context.Context) (domain.Principal, bool) {
	operatorID, ok := ctx.Value(OperatorIDKey).(uuid.UUID)
	if !ok {
		return domain.Principal{}, false
	}
	orgID, ok := ctx.Value(OrganizationIDKey).(string)
	if !ok || orgID == "" {
		return domain.Principal{}, false
	}
	name, _ := ctx.Value(OperatorNameKey).(string)
	return domain.OperatorPrincipal(operatorID, orgID, name), true
}

// GetOrganizationID returns the authenticated operator's organization
func GetOrganizationID(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(OrganizationIDKey).(string)
	return orgID, ok && orgID != ""
}

// SessionAuthenticator resolves a contact session id to a valid session and
// extends sessions close to expiry
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error)
	Refresh(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error)
}

// VisitorSession requires a valid contact session in the X-Contact-Session-ID
// header. Missing, unknown and expired sessions are all rejected with 401.
// Accepted sessions are refreshed; a failed refresh is logged and the request
// continues with the authenticated session.
func VisitorSession(sessions SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(ContactSessionHeader)
			if raw == "" {
				response.Unauthorized(w, "missing contact session")
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				response.Unauthorized(w, "invalid contact session")
				return
			}

			session, err := sessions.Authenticate(r.Context(), id)
			if err != nil {
				response.FromError(w, err)
				return
			}

			refreshed, err := sessions.Refresh(r.Context(), id)
			if err != nil {
				log.Warn().Err(err).Str("contact_session_id", id.String()).Msg("Failed to refresh contact session")
			} else {
				session = refreshed
			}

			ctx := context.WithValue(r.Context(), ContactSessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetContactSession returns the visitor's session from context
func GetContactSession(ctx context.Context) (*domain.ContactSession, bool) {
	session, ok := ctx.Value(ContactSessionKey).(*domain.ContactSession)
	return session, ok && session != nil
}
