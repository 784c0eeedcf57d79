package handler

import (
	"net/http"

	"github.com/Rrens/support-widget/internal/api/middleware"
	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/service"
)

// SettingsHandler serves the operator's widget configuration endpoints
type SettingsHandler struct {
	widgetService *service.WidgetService
	pluginService *service.PluginService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(widgetService *service.WidgetService, pluginService *service.PluginService) *SettingsHandler {
	return &SettingsHandler{widgetService: widgetService, pluginService: pluginService}
}

// GetSettings returns the organization's widget settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	settings, err := h.widgetService.GetSettings(r.Context(), orgID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, settings)
}

// UpsertSettings saves the organization's widget settings
func (h *SettingsHandler) UpsertSettings(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.WidgetSettingsUpsert
	if !decode(w, r, &input) {
		return
	}

	settings, err := h.widgetService.UpsertSettings(r.Context(), orgID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, settings)
}

// GetVapiPlugin reports whether the voice plugin is connected
func (h *SettingsHandler) GetVapiPlugin(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	plugin, err := h.pluginService.GetPlugin(r.Context(), orgID, domain.PluginVapi)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, plugin)
}

// UpsertVapiPlugin stores the voice keys
func (h *SettingsHandler) UpsertVapiPlugin(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input domain.VapiSecrets
	if !decode(w, r, &input) {
		return
	}

	plugin, err := h.pluginService.UpsertVapiSecrets(r.Context(), orgID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, plugin)
}

// RemoveVapiPlugin disconnects the voice plugin
func (h *SettingsHandler) RemoveVapiPlugin(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	if err := h.pluginService.RemovePlugin(r.Context(), orgID, domain.PluginVapi); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}
