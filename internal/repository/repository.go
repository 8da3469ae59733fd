package repository

import (
	"context"
	"errors"
	"time"

	"vendzz/internal/models"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status update is not reachable
// from the campaign's current status. Concurrent writers (owner toggles, the
// scheduler, in-flight workers) rely on this to lose races cleanly.
var ErrInvalidTransition = errors.New("invalid campaign status transition")

// ErrDuplicatePending is returned when a pending delivery record already
// exists for the (campaign, recipient) pair. The partial unique index on the
// delivery_records table enforces the no-double-send invariant; callers treat
// this as "someone else already dispatched this recipient".
var ErrDuplicatePending = errors.New("pending delivery record already exists")

// CampaignRepository defines campaign data access operations
type CampaignRepository interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, ownerID string, filters CampaignFilters) ([]*models.Campaign, int, error)
	UpdateStatus(ctx context.Context, id string, status models.CampaignStatus) error
	ListByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error)
	ListDue(ctx context.Context, now time.Time) ([]*models.Campaign, error)
}

// CampaignFilters defines filters for listing campaigns
type CampaignFilters struct {
	Page     int
	PageSize int
	Channel  *models.Channel
	Status   *models.CampaignStatus
}

// DeliveryLedger is the append-only store of delivery records plus the
// running per-status counters kept in step with every write.
type DeliveryLedger interface {
	// AppendPending inserts a new pending record for the next attempt number.
	// Returns ErrDuplicatePending if the recipient already has an open record.
	AppendPending(ctx context.Context, record *models.DeliveryRecord) error
	// Complete moves a pending record to a terminal status for its attempt.
	// Returns ErrNotFound if the record is missing or already closed.
	Complete(ctx context.Context, recordID int64, status models.DeliveryStatus, errorDetail *string, retryable bool) error
	CountsByStatus(ctx context.Context, campaignID string) (models.DeliveryCounts, error)
	List(ctx context.Context, campaignID string, limit int) ([]*models.DeliveryRecord, error)
	// LastAttempts returns the most recent record per recipient identity.
	LastAttempts(ctx context.Context, campaignID string) (map[string]*models.DeliveryRecord, error)
	ListPending(ctx context.Context, campaignID string) ([]*models.DeliveryRecord, error)
	FindPending(ctx context.Context, campaignID, identity string) (*models.DeliveryRecord, error)
	LatestRecordTime(ctx context.Context, campaignID string) (*time.Time, error)
}

// SubmissionRepository is the quiz/lead storage consumed by the target
// resolver and the lead ingestion endpoint.
type SubmissionRepository interface {
	GetQuiz(ctx context.Context, id string) (*models.Quiz, error)
	CreateSubmission(ctx context.Context, submission *models.Submission) error
	// GetSubmissions returns submissions for a quiz in ascending order of
	// submission time, optionally bounded below by minDate.
	GetSubmissions(ctx context.Context, quizID string, minDate *time.Time) ([]*models.Submission, error)
}

// AccountRepository defines account data access operations
type AccountRepository interface {
	GetByToken(ctx context.Context, token string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}
