package handler

import (
	"net/http"

	"github.com/Rrens/support-widget/internal/api/middleware"
	"github.com/Rrens/support-widget/internal/api/response"
	"github.com/Rrens/support-widget/internal/knowledge"
)

// KnowledgeHandler lets operators manage their organization's knowledge base
type KnowledgeHandler struct {
	retriever *knowledge.Retriever
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(retriever *knowledge.Retriever) *KnowledgeHandler {
	return &KnowledgeHandler{retriever: retriever}
}

// Add stores a knowledge entry
func (h *KnowledgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var input knowledge.EntryCreate
	if !decode(w, r, &input) {
		return
	}

	entry, err := h.retriever.Add(r.Context(), orgID, input)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, entry)
}

// List returns the organization's entries, newest first
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	entries, err := h.retriever.List(r.Context(), orgID, intQuery(r, "limit", 50), intQuery(r, "offset", 0))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, entries)
}

// Search runs a knowledge query the way the agent does
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		response.BadRequest(w, "missing query")
		return
	}

	result, err := h.retriever.Search(r.Context(), orgID, query, intQuery(r, "limit", 0))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, result)
}

// Delete removes an entry
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.GetOrganizationID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	id, ok := uuidParam(w, r, "entryID")
	if !ok {
		return
	}

	if err := h.retriever.Delete(r.Context(), orgID, id); err != nil {
		response.FromError(w, err)
		return
	}
	response.NoContent(w)
}
