package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"vendzz/internal/middleware"
	"vendzz/internal/service"
)

// LeadHandler handles quiz submission HTTP requests
type LeadHandler struct {
	leads *service.LeadService
}

// NewLeadHandler creates a new lead handler
func NewLeadHandler(leads *service.LeadService) *LeadHandler {
	return &LeadHandler{leads: leads}
}

// Submit handles POST /quizzes/{id}/submissions
func (h *LeadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	var input service.SubmissionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	submission, err := h.leads.Ingest(r.Context(), account.ID, mux.Vars(r)["id"], input)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, submission)
}
