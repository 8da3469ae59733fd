package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vendzz/internal/models"
	"vendzz/internal/queue"
	"vendzz/internal/repository"
)

// testClock is a controllable time source shared by fixture components.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	clock     *testClock
	campaigns map[string]*models.Campaign
	getErr    error
}

func newFakeCampaignRepo(clock *testClock) *fakeCampaignRepo {
	return &fakeCampaignRepo{clock: clock, campaigns: map[string]*models.Campaign{}}
}

func (f *fakeCampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.CreatedAt = f.clock.Now()
	c.UpdatedAt = f.clock.Now()
	copied := *c
	f.campaigns[c.ID] = &copied
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCampaignRepo) List(ctx context.Context, ownerID string, filters repository.CampaignFilters) ([]*models.Campaign, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Campaign
	for _, c := range f.campaigns {
		if c.OwnerID == ownerID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, len(out), nil
}

func (f *fakeCampaignRepo) UpdateStatus(ctx context.Context, id string, status models.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !c.CanTransitionTo(status) {
		return fmt.Errorf("campaign %s: %w: %s -> %s", id, repository.ErrInvalidTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = f.clock.Now()
	return nil
}

func (f *fakeCampaignRepo) ListByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Campaign
	for _, c := range f.campaigns {
		if c.Status == status {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeCampaignRepo) ListDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Campaign
	for _, c := range f.campaigns {
		if c.Status == models.CampaignStatusScheduled && c.ScheduledFor != nil && !c.ScheduledFor.After(now) {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeLedger struct {
	mu      sync.Mutex
	clock   *testClock
	nextID  int64
	records map[int64]*models.DeliveryRecord
}

func newFakeLedger(clock *testClock) *fakeLedger {
	return &fakeLedger{clock: clock, records: map[int64]*models.DeliveryRecord{}}
}

func (f *fakeLedger) AppendPending(ctx context.Context, record *models.DeliveryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	maxAttempt := 0
	for _, r := range f.records {
		if r.CampaignID != record.CampaignID || r.RecipientIdentity != record.RecipientIdentity {
			continue
		}
		if r.Status == models.DeliveryStatusPending {
			return repository.ErrDuplicatePending
		}
		if r.AttemptNumber > maxAttempt {
			maxAttempt = r.AttemptNumber
		}
	}

	f.nextID++
	record.ID = f.nextID
	record.AttemptNumber = maxAttempt + 1
	record.Status = models.DeliveryStatusPending
	record.Retryable = true
	record.CreatedAt = f.clock.Now()
	record.UpdatedAt = f.clock.Now()

	copied := *record
	f.records[record.ID] = &copied
	return nil
}

func (f *fakeLedger) Complete(ctx context.Context, recordID int64, status models.DeliveryStatus, errorDetail *string, retryable bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.records[recordID]
	if !ok || r.Status != models.DeliveryStatusPending {
		return repository.ErrNotFound
	}
	r.Status = status
	r.ErrorDetail = errorDetail
	r.Retryable = retryable
	r.UpdatedAt = f.clock.Now()
	if status == models.DeliveryStatusSent {
		now := f.clock.Now()
		r.SentAt = &now
	}
	return nil
}

func (f *fakeLedger) CountsByStatus(ctx context.Context, campaignID string) (models.DeliveryCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := models.DeliveryCounts{}
	for _, r := range f.records {
		if r.CampaignID != campaignID {
			continue
		}
		switch r.Status {
		case models.DeliveryStatusPending:
			counts.Pending++
		case models.DeliveryStatusSent:
			counts.Sent++
		case models.DeliveryStatusFailed:
			counts.Failed++
		case models.DeliveryStatusBounced:
			counts.Bounced++
		}
	}
	return counts, nil
}

func (f *fakeLedger) List(ctx context.Context, campaignID string, limit int) ([]*models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.DeliveryRecord
	for _, r := range f.records {
		if r.CampaignID == campaignID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeLedger) LastAttempts(ctx context.Context, campaignID string) (map[string]*models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempts := map[string]*models.DeliveryRecord{}
	for _, r := range f.records {
		if r.CampaignID != campaignID {
			continue
		}
		last, ok := attempts[r.RecipientIdentity]
		if !ok || r.AttemptNumber > last.AttemptNumber {
			copied := *r
			attempts[r.RecipientIdentity] = &copied
		}
	}
	return attempts, nil
}

func (f *fakeLedger) ListPending(ctx context.Context, campaignID string) ([]*models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.DeliveryRecord
	for _, r := range f.records {
		if r.CampaignID == campaignID && r.Status == models.DeliveryStatusPending {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeLedger) FindPending(ctx context.Context, campaignID, identity string) (*models.DeliveryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.records {
		if r.CampaignID == campaignID && r.RecipientIdentity == identity && r.Status == models.DeliveryStatusPending {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLedger) LatestRecordTime(ctx context.Context, campaignID string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *time.Time
	for _, r := range f.records {
		if r.CampaignID != campaignID {
			continue
		}
		created := r.CreatedAt
		if latest == nil || created.After(*latest) {
			latest = &created
		}
	}
	return latest, nil
}

// get returns a snapshot of one record for assertions.
func (f *fakeLedger) get(id int64) *models.DeliveryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return nil
	}
	copied := *r
	return &copied
}

type fakeResolver struct {
	mu         sync.Mutex
	recipients []models.Recipient
	err        error
}

func (f *fakeResolver) Resolve(ctx context.Context, selector models.AudienceSelector) ([]models.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Recipient, len(f.recipients))
	copy(out, f.recipients)
	return out, nil
}

type fakePublisher struct {
	mu   sync.Mutex
	jobs []*queue.DispatchJob
	err  error
}

func (f *fakePublisher) PublishJob(job *queue.DispatchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	copied := *job
	f.jobs = append(f.jobs, &copied)
	return nil
}

func (f *fakePublisher) published() []*queue.DispatchJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*queue.DispatchJob, len(f.jobs))
	copy(out, f.jobs)
	return out
}

// fakeLimiter allows a fixed number of sends, or everything when budget < 0.
type fakeLimiter struct {
	mu     sync.Mutex
	budget int
}

func (f *fakeLimiter) Allow(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.budget < 0 {
		return true, nil
	}
	if f.budget == 0 {
		return false, nil
	}
	f.budget--
	return true, nil
}
