package dispatch

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"vendzz/internal/models"
	"vendzz/internal/queue"
	"vendzz/internal/repository"
	"vendzz/internal/service"
	"vendzz/internal/template"
)

// Resolver produces the recipient list for an audience selector.
type Resolver interface {
	Resolve(ctx context.Context, selector models.AudienceSelector) ([]models.Recipient, error)
}

// JobPublisher hands rendered sends to the delivery workers.
type JobPublisher interface {
	PublishJob(job *queue.DispatchJob) error
}

// RateLimiter paces sends per provider credential.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// TickLock keeps concurrent scheduler processes from driving the same cycle.
type TickLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config holds scheduler tuning
type Config struct {
	TickInterval time.Duration
	QuietPeriod  time.Duration
	MaxAttempts  int
	RetryBackoff time.Duration
	// LimiterKeys maps each channel to its provider credential key, the
	// granularity at which the external provider actually throttles.
	LimiterKeys map[models.Channel]string
}

// Scheduler owns the campaign lifecycle and drives the resolve → render →
// dispatch pipeline. One tick advances all active campaigns; work for
// different campaigns runs concurrently, work for the same campaign never
// overlaps.
type Scheduler struct {
	campaigns repository.CampaignRepository
	ledger    repository.DeliveryLedger
	resolver  Resolver
	renderer  *template.Renderer
	publisher JobPublisher
	limiter   RateLimiter
	lock      TickLock
	cfg       Config

	mu       sync.Mutex
	inflight map[string]bool

	now func() time.Time
}

// NewScheduler creates a dispatch scheduler
func NewScheduler(
	campaigns repository.CampaignRepository,
	ledger repository.DeliveryLedger,
	resolver Resolver,
	renderer *template.Renderer,
	publisher JobPublisher,
	limiter RateLimiter,
	lock TickLock,
	cfg Config,
) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 10 * time.Second
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = 120 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 30 * time.Second
	}

	return &Scheduler{
		campaigns: campaigns,
		ledger:    ledger,
		resolver:  resolver,
		renderer:  renderer,
		publisher: publisher,
		limiter:   limiter,
		lock:      lock,
		cfg:       cfg,
		inflight:  map[string]bool{},
		now:       time.Now,
	}
}

// Run drives ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.runLocked(ctx); err != nil {
				log.Printf("scheduler tick failed: %v", err)
			}
		}
	}
}

func (s *Scheduler) runLocked(ctx context.Context) error {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return err
		}
		if !acquired {
			// Another scheduler instance holds the cycle
			return nil
		}
		defer s.lock.Release(ctx)
	}

	return s.Tick(ctx)
}

// Tick runs one scheduling cycle: promote due campaigns, then dispatch every
// active campaign. Returns after all per-campaign work has finished.
func (s *Scheduler) Tick(ctx context.Context) error {
	if err := s.promoteDue(ctx); err != nil {
		log.Printf("failed to promote due campaigns: %v", err)
	}

	active, err := s.campaigns.ListByStatus(ctx, models.CampaignStatusActive)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, campaign := range active {
		if !s.tryAcquire(campaign.ID) {
			// Previous cycle for this campaign is still running
			continue
		}

		wg.Add(1)
		go func(c *models.Campaign) {
			defer wg.Done()
			defer s.release(c.ID)
			s.dispatchCampaign(ctx, c)
		}(campaign)
	}
	wg.Wait()

	return nil
}

// promoteDue moves scheduled campaigns whose time has come to active.
func (s *Scheduler) promoteDue(ctx context.Context) error {
	due, err := s.campaigns.ListDue(ctx, s.now())
	if err != nil {
		return err
	}

	for _, campaign := range due {
		if err := s.campaigns.UpdateStatus(ctx, campaign.ID, models.CampaignStatusActive); err != nil {
			log.Printf("failed to activate campaign %s: %v", campaign.ID, err)
			continue
		}
		log.Printf("campaign %s activated (scheduled for %s)", campaign.ID, campaign.ScheduledFor)
	}

	return nil
}

// dispatchCampaign runs one cycle for one campaign: resolve the audience
// fresh, diff against the ledger, and open a pending record + job for every
// recipient that still needs one.
func (s *Scheduler) dispatchCampaign(ctx context.Context, campaign *models.Campaign) {
	recipients, err := s.resolver.Resolve(ctx, campaign.Audience)
	if err != nil {
		var notFound *service.NotFoundError
		if errors.As(err, &notFound) {
			// The lead source is gone; nothing to dispatch, ever.
			log.Printf("campaign %s failed: %v", campaign.ID, err)
			if err := s.campaigns.UpdateStatus(ctx, campaign.ID, models.CampaignStatusFailed); err != nil {
				log.Printf("failed to mark campaign %s failed: %v", campaign.ID, err)
			}
			return
		}
		log.Printf("campaign %s: audience resolution failed, retrying next tick: %v", campaign.ID, err)
		return
	}

	attempts, err := s.ledger.LastAttempts(ctx, campaign.ID)
	if err != nil {
		log.Printf("campaign %s: failed to load ledger state: %v", campaign.ID, err)
		return
	}

	dispatched := 0
	for _, recipient := range recipients {
		// Cooperative pause: status is re-checked before every recipient,
		// never mid-send.
		current, err := s.campaigns.GetByID(ctx, campaign.ID)
		if err != nil {
			log.Printf("campaign %s: failed to re-check status, ending batch: %v", campaign.ID, err)
			return
		}
		if current.Status != models.CampaignStatusActive {
			return
		}

		last := attempts[recipient.Identity]
		if last != nil && !s.needsDispatch(last) {
			continue
		}

		allowed, err := s.limiter.Allow(ctx, s.limiterKey(campaign.Channel))
		if err != nil {
			log.Printf("campaign %s: rate limiter unavailable: %v", campaign.ID, err)
			return
		}
		if !allowed {
			log.Printf("campaign %s: send budget exhausted, resuming next tick", campaign.ID)
			break
		}

		if s.dispatchRecipient(ctx, campaign, recipient) {
			dispatched++
		}
	}

	if dispatched == 0 {
		s.maybeComplete(ctx, campaign, recipients, attempts)
	}
}

// dispatchRecipient renders and opens the attempt for one recipient.
// Returns true if a new record was created.
func (s *Scheduler) dispatchRecipient(ctx context.Context, campaign *models.Campaign, recipient models.Recipient) bool {
	payload := s.renderer.Render(campaign.MessageTemplate, recipient.Variables)

	record := &models.DeliveryRecord{
		CampaignID:        campaign.ID,
		RecipientIdentity: recipient.Identity,
		RenderedContent:   payload,
	}

	if err := s.ledger.AppendPending(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			// Another dispatcher opened this recipient first
			return false
		}
		log.Printf("campaign %s: failed to open record for %s: %v", campaign.ID, recipient.Identity, err)
		return false
	}

	// WhatsApp records stay on the pending surface for the extension to
	// pull; everything else goes to the delivery workers.
	if campaign.Channel == models.ChannelWhatsApp {
		return true
	}

	job := &queue.DispatchJob{
		RecordID:   record.ID,
		CampaignID: campaign.ID,
		Channel:    campaign.Channel,
		Identity:   recipient.Identity,
		Payload:    payload,
		Attempt:    record.AttemptNumber,
	}
	if err := s.publisher.PublishJob(job); err != nil {
		// The pending record stays open; the worker never sees it, and the
		// next cycle cannot double-open it. Close it as transient so the
		// retry path picks it up.
		log.Printf("campaign %s: failed to publish job for %s: %v", campaign.ID, recipient.Identity, err)
		detail := "failed to enqueue dispatch job"
		if err := s.ledger.Complete(ctx, record.ID, models.DeliveryStatusFailed, &detail, true); err != nil {
			log.Printf("campaign %s: failed to close unpublished record %d: %v", campaign.ID, record.ID, err)
		}
		return false
	}

	return true
}

// needsDispatch decides whether a recipient with history gets a new attempt.
func (s *Scheduler) needsDispatch(last *models.DeliveryRecord) bool {
	if !last.CanRetry(s.cfg.MaxAttempts) {
		return false
	}
	return !s.now().Before(last.UpdatedAt.Add(s.backoffFor(last.AttemptNumber)))
}

// backoffFor returns the exponential delay before attempt n may be retried.
func (s *Scheduler) backoffFor(attempt int) time.Duration {
	backoff := s.cfg.RetryBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}

// maybeComplete marks the campaign completed once every resolved recipient
// has a settled record, no retries are owed, and the audience has been quiet
// for the configured period.
func (s *Scheduler) maybeComplete(ctx context.Context, campaign *models.Campaign, recipients []models.Recipient, attempts map[string]*models.DeliveryRecord) {
	counts, err := s.ledger.CountsByStatus(ctx, campaign.ID)
	if err != nil {
		log.Printf("campaign %s: failed to read counts: %v", campaign.ID, err)
		return
	}
	if counts.Pending > 0 {
		return
	}

	for _, recipient := range recipients {
		last := attempts[recipient.Identity]
		if last == nil || last.CanRetry(s.cfg.MaxAttempts) {
			return
		}
	}

	baseline := campaign.UpdatedAt
	latest, err := s.ledger.LatestRecordTime(ctx, campaign.ID)
	if err != nil {
		log.Printf("campaign %s: failed to read latest record time: %v", campaign.ID, err)
		return
	}
	if latest != nil && latest.After(baseline) {
		baseline = *latest
	}

	if s.now().Sub(baseline) < s.cfg.QuietPeriod {
		return
	}

	if err := s.campaigns.UpdateStatus(ctx, campaign.ID, models.CampaignStatusCompleted); err != nil {
		log.Printf("failed to complete campaign %s: %v", campaign.ID, err)
		return
	}
	log.Printf("campaign %s completed: %d sent, %d failed, %d bounced", campaign.ID, counts.Sent, counts.Failed, counts.Bounced)
}

func (s *Scheduler) limiterKey(channel models.Channel) string {
	if key, ok := s.cfg.LimiterKeys[channel]; ok && key != "" {
		return key
	}
	return string(channel)
}

func (s *Scheduler) tryAcquire(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[campaignID] {
		return false
	}
	s.inflight[campaignID] = true
	return true
}

func (s *Scheduler) release(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, campaignID)
}
