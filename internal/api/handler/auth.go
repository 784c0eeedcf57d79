package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/support-widget/internal/api/middleware"
	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/service"
)

// AuthHandler handles operator authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an organization and its first operator
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.OperatorRegister
	if !decode(w, r, &input) {
		return
	}

	operator, err := h.authService.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Error(w, http.StatusConflict, err.Error())
			return
		}
		response.FromError(w, err)
		return
	}

	response.Created(w, map[string]any{
		"id":              operator.ID,
		"email":           operator.Email,
		"name":            operator.Name,
		"organization_id": operator.OrganizationID,
	})
}

// Login handles operator login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.OperatorLogin
	if !decode(w, r, &input) {
		return
	}

	tokens, err := h.authService.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(w, err.Error())
			return
		}
		response.FromError(w, err)
		return
	}

	response.OK(w, tokens)
}

// Refresh handles token refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}
	if !decode(w, r, &input) {
		return
	}

	tokens, err := h.authService.Refresh(r.Context(), input.RefreshToken)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, tokens)
}

// Me returns the current operator
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetOperator(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	operator, err := h.authService.GetOperator(r.Context(), principal.OperatorID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, operator)
}
