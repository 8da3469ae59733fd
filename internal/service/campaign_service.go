package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vendzz/internal/models"
	"vendzz/internal/repository"
	"vendzz/internal/template"
)

// CreateCampaignInput is the payload for creating a campaign
type CreateCampaignInput struct {
	Channel         models.Channel          `json:"channel"`
	MessageTemplate string                  `json:"message_template"`
	Audience        models.AudienceSelector `json:"audience_selector"`
	ScheduledFor    *time.Time              `json:"scheduled_for,omitempty"`
}

// PaginationInfo describes one page of a listing
type PaginationInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// PreviewResult is a template rendered against caller-supplied variables.
type PreviewResult struct {
	Rendered     string   `json:"rendered"`
	Placeholders []string `json:"placeholders"`
}

// CampaignService handles campaign business logic
type CampaignService struct {
	campaigns   repository.CampaignRepository
	ledger      repository.DeliveryLedger
	submissions repository.SubmissionRepository
	renderer    *template.Renderer
	now         func() time.Time
}

// NewCampaignService creates a new campaign service
func NewCampaignService(
	campaigns repository.CampaignRepository,
	ledger repository.DeliveryLedger,
	submissions repository.SubmissionRepository,
	renderer *template.Renderer,
) *CampaignService {
	return &CampaignService{
		campaigns:   campaigns,
		ledger:      ledger,
		submissions: submissions,
		renderer:    renderer,
		now:         time.Now,
	}
}

// CreateCampaign validates and creates a campaign for the account. A future
// scheduled_for yields a scheduled campaign, none yields an immediately
// active one.
func (s *CampaignService) CreateCampaign(ctx context.Context, account *models.Account, input CreateCampaignInput) (*models.Campaign, error) {
	campaign := &models.Campaign{
		ID:              uuid.NewString(),
		OwnerID:         account.ID,
		Channel:         input.Channel,
		MessageTemplate: input.MessageTemplate,
		Audience:        input.Audience,
		ScheduledFor:    input.ScheduledFor,
	}

	if err := campaign.Validate(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if err := s.renderer.Validate(campaign.MessageTemplate); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	if account.CreditsFor(campaign.Channel) <= 0 {
		return nil, &ValidationError{Message: fmt.Sprintf("insufficient %s credits", campaign.Channel)}
	}

	quiz, err := s.submissions.GetQuiz(ctx, campaign.Audience.SourceQuizID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "quiz", ID: campaign.Audience.SourceQuizID}
		}
		return nil, fmt.Errorf("failed to look up quiz: %w", err)
	}
	if quiz.OwnerID != account.ID {
		return nil, &NotFoundError{Resource: "quiz", ID: campaign.Audience.SourceQuizID}
	}

	if campaign.ScheduledFor != nil {
		if campaign.ScheduledFor.Before(s.now()) {
			return nil, &ValidationError{Message: "scheduled_for must be in the future"}
		}
		campaign.Status = models.CampaignStatusScheduled
	} else {
		campaign.Status = models.CampaignStatusActive
	}

	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return campaign, nil
}

// GetCampaign returns the campaign with its per-status delivery counts.
func (s *CampaignService) GetCampaign(ctx context.Context, ownerID, id string) (*models.CampaignWithCounts, error) {
	campaign, err := s.ownedCampaign(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.ledger.CountsByStatus(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load delivery counts: %w", err)
	}

	return &models.CampaignWithCounts{Campaign: *campaign, Counts: counts}, nil
}

// ListCampaigns returns the owner's campaigns with pagination metadata.
func (s *CampaignService) ListCampaigns(ctx context.Context, ownerID string, filters repository.CampaignFilters) ([]*models.Campaign, *PaginationInfo, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	campaigns, total, err := s.campaigns.List(ctx, ownerID, filters)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	totalPages := (total + filters.PageSize - 1) / filters.PageSize
	return campaigns, &PaginationInfo{
		Page:       filters.Page,
		PageSize:   filters.PageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// ToggleCampaign pauses an active campaign or resumes a paused one.
// Any other status is a conflict.
func (s *CampaignService) ToggleCampaign(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	campaign, err := s.ownedCampaign(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	var next models.CampaignStatus
	switch campaign.Status {
	case models.CampaignStatusActive:
		next = models.CampaignStatusPaused
	case models.CampaignStatusPaused:
		next = models.CampaignStatusActive
	default:
		return nil, &ConflictError{
			Resource: "campaign",
			Message:  fmt.Sprintf("cannot toggle campaign in status %s", campaign.Status),
		}
	}

	if err := s.campaigns.UpdateStatus(ctx, id, next); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			return nil, &ConflictError{
				Resource: "campaign",
				Message:  fmt.Sprintf("campaign status changed concurrently, cannot move to %s", next),
			}
		}
		return nil, fmt.Errorf("failed to update campaign status: %w", err)
	}

	campaign.Status = next
	return campaign, nil
}

// GetLogs returns the most recent delivery records for the campaign.
func (s *CampaignService) GetLogs(ctx context.Context, ownerID, id string, limit int) ([]*models.DeliveryRecord, error) {
	if _, err := s.ownedCampaign(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if limit < 1 || limit > 500 {
		limit = 50
	}

	records, err := s.ledger.List(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	return records, nil
}

// Preview renders the campaign's template against caller-supplied variables,
// exactly as dispatch would.
func (s *CampaignService) Preview(ctx context.Context, ownerID, id string, variables map[string]string) (*PreviewResult, error) {
	campaign, err := s.ownedCampaign(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	return &PreviewResult{
		Rendered:     s.renderer.Render(campaign.MessageTemplate, variables),
		Placeholders: s.renderer.Placeholders(campaign.MessageTemplate),
	}, nil
}

// ownedCampaign loads a campaign and hides it from non-owners.
func (s *CampaignService) ownedCampaign(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
	campaign, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Resource: "campaign", ID: id}
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign.OwnerID != ownerID {
		return nil, &NotFoundError{Resource: "campaign", ID: id}
	}
	return campaign, nil
}
