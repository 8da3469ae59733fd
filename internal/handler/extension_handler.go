package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"vendzz/internal/middleware"
	"vendzz/internal/service"
)

// ExtensionHandler handles the browser-extension pull/report surface
type ExtensionHandler struct {
	extensions *service.ExtensionService
}

// NewExtensionHandler creates a new extension handler
func NewExtensionHandler(extensions *service.ExtensionService) *ExtensionHandler {
	return &ExtensionHandler{extensions: extensions}
}

// PendingSends handles GET /campaigns/{id}/pending-sends
func (h *ExtensionHandler) PendingSends(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	records, err := h.extensions.PendingSends(r.Context(), account.ID, mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"pending_sends": records})
}

// ReportOutcome handles POST /campaigns/{id}/delivery-outcome
func (h *ExtensionHandler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	var input service.OutcomeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	if err := h.extensions.ReportOutcome(r.Context(), account.ID, mux.Vars(r)["id"], input); err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// Heartbeat handles POST /extension/heartbeat
func (h *ExtensionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	if err := h.extensions.Heartbeat(r.Context(), account.ID); err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /extension/status
func (h *ExtensionHandler) Status(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	status, err := h.extensions.Status(r.Context(), account.ID)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, status)
}
