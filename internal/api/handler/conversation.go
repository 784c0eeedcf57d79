package handler

import (
	"net/http"

	"github.com/Rrens/support-widget/internal/api/middleware"
	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/domain"
	"github.com/Rrens/support-widget/internal/service"
)

type submitMessageRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8000"`
}

type createConversationRequest struct {
	OrganizationID string `json:"organization_id" validate:"required,max=255"`
}

type updateStatusRequest struct {
	Status domain.ConversationStatus `json:"status" validate:"required,oneof=unresolved escalated resolved"`
}

type enhanceRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8000"`
}

// ConversationHandler serves conversation endpoints for visitors and operators
type ConversationHandler struct {
	conversationService *service.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func principalFrom(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	if operator, ok := middleware.GetOperator(r.Context()); ok {
		return operator, true
	}
	if session, ok := middleware.GetContactSession(r.Context()); ok {
		return domain.VisitorPrincipal(session.ID), true
	}
	response.Unauthorized(w, "unauthorized")
	return domain.Principal{}, false
}

// Create starts a conversation for the visitor's session
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetContactSession(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input createConversationRequest
	if !decode(w, r, &input) {
		return
	}

	conversation, err := h.conversationService.Create(r.Context(), input.OrganizationID, session.ID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, conversation)
}

// List returns the caller's conversations: the visitor's own, or the
// operator's organization filtered by ?status=
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := intQuery(r, "limit", 0)
	offset := intQuery(r, "offset", 0)

	if operator, ok := middleware.GetOperator(r.Context()); ok {
		filter := domain.ConversationFilter{
			OrganizationID: operator.OrganizationID,
			Limit:          limit,
			Offset:         offset,
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := domain.ConversationStatus(raw)
			filter.Status = &status
		}

		summaries, err := h.conversationService.ListForOrganization(r.Context(), filter)
		if err != nil {
			response.FromError(w, err)
			return
		}
		response.OK(w, summaries)
		return
	}

	session, ok := middleware.GetContactSession(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	summaries, err := h.conversationService.ListForVisitor(r.Context(), session.ID, limit, offset)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, summaries)
}

// Get returns one conversation
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}

	summary, err := h.conversationService.Get(r.Context(), principal, id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, summary)
}

// ListMessages returns a page of the conversation's messages, newest first
func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}

	page, err := h.conversationService.ListMessages(r.Context(), principal, id, domain.PaginationOpts{
		NumItems: intQuery(r, "num_items", 0),
		Cursor:   r.URL.Query().Get("cursor"),
	})
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, page)
}

// SubmitMessage appends a message as the caller
func (h *ConversationHandler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}

	var input submitMessageRequest
	if !decode(w, r, &input) {
		return
	}

	result, err := h.conversationService.SubmitMessage(r.Context(), principal, id, input.Prompt)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, result)
}

// UpdateStatus applies an operator status change
func (h *ConversationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	id, ok := uuidParam(w, r, "conversationID")
	if !ok {
		return
	}

	var input updateStatusRequest
	if !decode(w, r, &input) {
		return
	}

	change, err := h.conversationService.UpdateStatus(r.Context(), orgID, id, input.Status)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, change)
}

// Enhance rewrites an operator draft
func (h *ConversationHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	var input enhanceRequest
	if !decode(w, r, &input) {
		return
	}

	enhanced, err := h.conversationService.EnhanceResponse(r.Context(), input.Prompt)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, map[string]string{"content": enhanced})
}
