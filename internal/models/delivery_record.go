package models

import "time"

// DeliveryStatus represents valid delivery record statuses
type DeliveryStatus string

const (
	DeliveryStatusPending DeliveryStatus = "pending"
	DeliveryStatusSent    DeliveryStatus = "sent"
	DeliveryStatusFailed  DeliveryStatus = "failed"
	DeliveryStatusBounced DeliveryStatus = "bounced"
)

// ValidDeliveryStatus reports whether s is a known delivery status.
func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusBounced:
		return true
	}
	return false
}

// Terminal reports whether the status is final for its attempt.
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryStatusSent || s == DeliveryStatusFailed || s == DeliveryStatusBounced
}

// DeliveryRecord is one logged attempt to deliver a rendered message to one
// recipient. Records are append-only across attempts: a retry inserts a new
// record with an incremented attempt number, it never rewrites the prior one.
type DeliveryRecord struct {
	ID                int64          `json:"id" db:"id"`
	CampaignID        string         `json:"campaign_id" db:"campaign_id"`
	RecipientIdentity string         `json:"recipient_identity" db:"recipient_identity"`
	AttemptNumber     int            `json:"attempt_number" db:"attempt_number"`
	Status            DeliveryStatus `json:"status" db:"status"`
	ErrorDetail       *string        `json:"error_detail,omitempty" db:"error_detail"`
	RenderedContent   string         `json:"rendered_content" db:"rendered_content"`
	Retryable         bool           `json:"retryable" db:"retryable"`
	SentAt            *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// CanRetry reports whether a further attempt may follow this record.
// Only transient failures below the attempt cap qualify.
func (r *DeliveryRecord) CanRetry(maxAttempts int) bool {
	return r.Status == DeliveryStatusFailed && r.Retryable && r.AttemptNumber < maxAttempts
}

// DeliveryCounts holds the running per-status counters for a campaign.
// Maintained transactionally with every ledger write so reads never scan
// the full record history.
type DeliveryCounts struct {
	Pending int `json:"pending"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Bounced int `json:"bounced"`
}

// Total returns the number of delivery records across all statuses.
func (c DeliveryCounts) Total() int {
	return c.Pending + c.Sent + c.Failed + c.Bounced
}
