package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"vendzz/internal/middleware"
	"vendzz/internal/models"
	"vendzz/internal/repository"
	"vendzz/internal/service"
)

// CampaignHandler handles campaign HTTP requests
type CampaignHandler struct {
	campaigns *service.CampaignService
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaigns *service.CampaignService) *CampaignHandler {
	return &CampaignHandler{campaigns: campaigns}
}

// Create handles POST /campaigns
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	var input service.CreateCampaignInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	campaign, err := h.campaigns.CreateCampaign(r.Context(), account, input)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, campaign)
}

// List handles GET /campaigns
func (h *CampaignHandler) List(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	filters := repository.CampaignFilters{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := models.CampaignStatus(v)
		filters.Status = &status
	}
	if v := r.URL.Query().Get("channel"); v != "" {
		channel := models.Channel(v)
		filters.Channel = &channel
	}

	campaigns, pagination, err := h.campaigns.ListCampaigns(r.Context(), account.ID, filters)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"campaigns":  campaigns,
		"pagination": pagination,
	})
}

// Get handles GET /campaigns/{id}
func (h *CampaignHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	campaign, err := h.campaigns.GetCampaign(r.Context(), account.ID, mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, campaign)
}

// Toggle handles PATCH /campaigns/{id}/toggle
func (h *CampaignHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	campaign, err := h.campaigns.ToggleCampaign(r.Context(), account.ID, mux.Vars(r)["id"])
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, campaign)
}

// Logs handles GET /campaigns/{id}/logs
func (h *CampaignHandler) Logs(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	records, err := h.campaigns.GetLogs(r.Context(), account.ID, mux.Vars(r)["id"], queryInt(r, "limit", 50))
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]interface{}{"logs": records})
}

// Preview handles POST /campaigns/{id}/preview
func (h *CampaignHandler) Preview(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.AccountFrom(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing account")
		return
	}

	var body struct {
		Variables map[string]string `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		RespondError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}

	preview, err := h.campaigns.Preview(r.Context(), account.ID, mux.Vars(r)["id"], body.Variables)
	if err != nil {
		HandleServiceError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, preview)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
