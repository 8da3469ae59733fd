package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendzz/internal/models"
	"vendzz/internal/repository"
)

// HeartbeatStore tracks browser-extension liveness per owner.
type HeartbeatStore interface {
	Heartbeat(ctx context.Context, ownerID string) error
	Status(ctx context.Context, ownerID string) (connected bool, lastSeen *time.Time, err error)
}

// OutcomeInput is the extension's report for one delivered (or not) message.
type OutcomeInput struct {
	RecipientIdentity string  `json:"recipient_identity"`
	Status            string  `json:"status"`
	ErrorDetail       *string `json:"error_detail,omitempty"`
}

// ExtensionStatus is the connectivity report for an owner's extension.
type ExtensionStatus struct {
	Connected bool       `json:"connected"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
}

// ExtensionService is the pull/report surface for the browser extension that
// performs WhatsApp sends. Pending records are created by the scheduler; the
// extension pulls them, sends through the user's own session, and reports the
// outcome back here.
type ExtensionService struct {
	campaigns  repository.CampaignRepository
	ledger     repository.DeliveryLedger
	heartbeats HeartbeatStore
}

// NewExtensionService creates a new extension service
func NewExtensionService(
	campaigns repository.CampaignRepository,
	ledger repository.DeliveryLedger,
	heartbeats HeartbeatStore,
) *ExtensionService {
	return &ExtensionService{
		campaigns:  campaigns,
		ledger:     ledger,
		heartbeats: heartbeats,
	}
}

// PendingSends returns the open WhatsApp records for the campaign, oldest
// first. Pulling does not change record state: a send only counts once the
// extension reports its outcome.
func (s *ExtensionService) PendingSends(ctx context.Context, ownerID, campaignID string) ([]*models.DeliveryRecord, error) {
	campaign, err := s.ownedCampaign(ctx, ownerID, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Channel != models.ChannelWhatsApp {
		return nil, &ConflictError{
			Resource: "campaign",
			Message:  fmt.Sprintf("pending sends are only available for whatsapp campaigns, not %s", campaign.Channel),
		}
	}

	records, err := s.ledger.ListPending(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sends: %w", err)
	}
	return records, nil
}

// ReportOutcome closes the recipient's open record with the status the
// extension observed. Reporting twice for the same record is a no-op.
func (s *ExtensionService) ReportOutcome(ctx context.Context, ownerID, campaignID string, input OutcomeInput) error {
	if _, err := s.ownedCampaign(ctx, ownerID, campaignID); err != nil {
		return err
	}

	if input.RecipientIdentity == "" {
		return &ValidationError{Message: "recipient_identity is required"}
	}

	status := models.DeliveryStatus(input.Status)
	if !status.Terminal() {
		return &ValidationError{Message: "status must be 'sent', 'failed' or 'bounced'"}
	}

	record, err := s.ledger.FindPending(ctx, campaignID, input.RecipientIdentity)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Already closed or never opened; duplicate reports are harmless.
			return nil
		}
		return fmt.Errorf("failed to find pending record: %w", err)
	}

	// Extension failures are transient by default: the session may have been
	// logged out mid-batch. Bounces are permanent.
	retryable := status == models.DeliveryStatusFailed

	if err := s.ledger.Complete(ctx, record.ID, status, input.ErrorDetail, retryable); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

// Heartbeat records a ping from the owner's extension.
func (s *ExtensionService) Heartbeat(ctx context.Context, ownerID string) error {
	if err := s.heartbeats.Heartbeat(ctx, ownerID); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

// Status reports whether the owner's extension is currently connected.
func (s *ExtensionService) Status(ctx context.Context, ownerID string) (*ExtensionStatus, error) {
	connected, lastSeen, err := s.heartbeats.Status(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to read extension status: %w", err)
	}
	return &ExtensionStatus{Connected: connected, LastSeen: lastSeen}, nil
}

func (s *ExtensionService) ownedCampaign(ctx context.Context, ownerID, id string) (*models.Campaign, error) {
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
