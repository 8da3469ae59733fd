package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vendzz/internal/adapter"
	"vendzz/internal/models"
	"vendzz/internal/queue"
	"vendzz/internal/repository"
)

// Sender executes dispatch jobs against delivery adapters and records the
// outcome in the ledger. It runs in the worker process, one job at a time.
type Sender struct {
	campaigns repository.CampaignRepository
	ledger    repository.DeliveryLedger
	adapters  map[models.Channel]adapter.DeliveryAdapter
	timeout   time.Duration
}

// NewSender creates a sender with the given adapters
func NewSender(
	campaigns repository.CampaignRepository,
	ledger repository.DeliveryLedger,
	adapters map[models.Channel]adapter.DeliveryAdapter,
	timeout time.Duration,
) *Sender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		campaigns: campaigns,
		ledger:    ledger,
		adapters:  adapters,
		timeout:   timeout,
	}
}

// Process handles one dispatch job. Delivery failures are recorded in the
// ledger and return nil; only infrastructure errors propagate, which requeues
// the job.
func (s *Sender) Process(ctx context.Context, job *queue.DispatchJob) error {
	deliveryAdapter, ok := s.adapters[job.Channel]
	if !ok {
		// A job for a channel this worker cannot serve is a deployment
		// problem, not a recipient problem.
		detail := fmt.Sprintf("no adapter configured for channel %s", job.Channel)
		if err := s.ledger.Complete(ctx, job.RecordID, models.DeliveryStatusFailed, &detail, false); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to record missing adapter for record %d: %w", job.RecordID, err)
		}
		s.failCampaign(ctx, job.CampaignID, detail)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	outcome := deliveryAdapter.Send(sendCtx, job.Identity, job.Payload)

	// Pending outcomes belong to pull channels; the record is closed later
	// through the delivery-outcome surface.
	if outcome.Status == models.DeliveryStatusPending {
		return nil
	}

	var errorDetail *string
	if outcome.ErrorDetail != "" {
		errorDetail = &outcome.ErrorDetail
	}

	if err := s.ledger.Complete(ctx, job.RecordID, outcome.Status, errorDetail, outcome.Retryable); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Redelivered job whose record is already closed; the first
			// outcome stands.
			log.Printf("record %d already closed, ignoring redelivered job", job.RecordID)
			return nil
		}
		return fmt.Errorf("failed to record outcome for record %d: %w", job.RecordID, err)
	}

	if outcome.ErrorDetail != "" {
		log.Printf("campaign %s: attempt %d for %s %s: %s", job.CampaignID, job.Attempt, job.Identity, outcome.Status, outcome.ErrorDetail)
	} else {
		log.Printf("campaign %s: attempt %d for %s %s", job.CampaignID, job.Attempt, job.Identity, outcome.Status)
	}

	// Credential-level failures poison every remaining send; stop the
	// campaign instead of burning through the audience.
	if outcome.ConfigError {
		detail := outcome.ErrorDetail
		if detail == "" {
			detail = "provider configuration rejected"
		}
		s.failCampaign(ctx, job.CampaignID, detail)
	}

	return nil
}

func (s *Sender) failCampaign(ctx context.Context, campaignID, reason string) {
	if err := s.campaigns.UpdateStatus(ctx, campaignID, models.CampaignStatusFailed); err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			// The campaign left the active state while this job was in
			// flight; the owner's pause or the scheduler's close stands.
			log.Printf("campaign %s not marked failed: %v", campaignID, err)
			return
		}
		log.Printf("failed to mark campaign %s failed: %v", campaignID, err)
		return
	}
	log.Printf("campaign %s failed: %s", campaignID, reason)
}
