package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/service"
)

// PublicHandler serves the unauthenticated widget bootstrap endpoints
type PublicHandler struct {
	orgService     *service.OrganizationService
	sessionService *service.ContactSessionService
	widgetService  *service.WidgetService
	pluginService  *service.PluginService
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(
	orgService *service.OrganizationService,
	sessionService *service.ContactSessionService,
	widgetService *service.WidgetService,
	pluginService *service.PluginService,
) *PublicHandler {
	return &PublicHandler{
		orgService:     orgService,
		sessionService: sessionService,
		widgetService:  widgetService,
		pluginService:  pluginService,
	}
}

// ValidateOrganization reports whether the organization exists
func (h *PublicHandler) ValidateOrganization(w http.ResponseWriter, r *http.Request) {
	result, err := h.orgService.Validate(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, result)
}

// CreateContactSession starts a visitor session
func (h *PublicHandler) CreateContactSession(w http.ResponseWriter, r *http.Request) {
	var input domain.ContactSessionCreate
	if !decode(w, r, &input) {
		return
	}

	session, err := h.sessionService.Create(r.Context(), input)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, session)
}

// ValidateContactSession reports whether a session is still usable
func (h *PublicHandler) ValidateContactSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}

	result, err := h.sessionService.Validate(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, result)
}

// RefreshContactSession extends a session close to expiry
func (h *PublicHandler) RefreshContactSession(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "sessionID")
	if !ok {
		return
	}

	session, err := h.sessionService.Refresh(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, session)
}

// GetWidgetSettings returns the organization's widget settings; data is null
// when none are configured
func (h *PublicHandler) GetWidgetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.widgetService.GetSettings(r.Context(), chi.URLParam(r, "orgID"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, settings)
}

// GetVoiceCredentials returns the public voice key; data is null when
// unavailable for any reason
func (h *PublicHandler) GetVoiceCredentials(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.pluginService.GetVoiceCredentials(r.Context(), chi.URLParam(r, "orgID")))
}
