package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"vendzz/internal/models"
)

type ledgerRepository struct {
	db *sql.DB
}

// NewDeliveryLedger creates a Postgres-backed delivery ledger
func NewDeliveryLedger(db *sql.DB) DeliveryLedger {
	return &ledgerRepository{db: db}
}

const recordColumns = `id, campaign_id, recipient_identity, attempt_number, status, error_detail, rendered_content, retryable, sent_at, created_at, updated_at`

func scanRecord(row interface {
	Scan(dest ...interface{}) error
}) (*models.DeliveryRecord, error) {
	record := &models.DeliveryRecord{}
	err := row.Scan(
		&record.ID,
		&record.CampaignID,
		&record.RecipientIdentity,
		&record.AttemptNumber,
		&record.Status,
		&record.ErrorDetail,
		&record.RenderedContent,
		&record.Retryable,
		&record.SentAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// bumpCounter adjusts the running counter for (campaign, status) by delta
// inside the caller's transaction.
func bumpCounter(ctx context.Context, tx *sql.Tx, campaignID string, status models.DeliveryStatus, delta int) error {
	query := `
		INSERT INTO delivery_counters (campaign_id, status, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (campaign_id, status)
		DO UPDATE SET count = delivery_counters.count + $3
	`

	if _, err := tx.ExecContext(ctx, query, campaignID, status, delta); err != nil {
		return fmt.Errorf("failed to update delivery counter: %w", err)
	}
	return nil
}

// AppendPending inserts a pending record for the next attempt number. The
// attempt number is derived inside the insert so concurrent dispatchers
// cannot produce gaps, and the partial unique pending index turns a race
// into ErrDuplicatePending instead of a double send.
func (r *ledgerRepository) AppendPending(ctx context.Context, record *models.DeliveryRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO delivery_records (campaign_id, recipient_identity, attempt_number, status, rendered_content, retryable)
		SELECT $1, $2, COALESCE(MAX(attempt_number), 0) + 1, $3, $4, TRUE
		FROM delivery_records
		WHERE campaign_id = $1 AND recipient_identity = $2
		RETURNING id, attempt_number, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		record.CampaignID,
		record.RecipientIdentity,
		models.DeliveryStatusPending,
		record.RenderedContent,
	).Scan(&record.ID, &record.AttemptNumber, &record.CreatedAt, &record.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("failed to append pending record: %w", err)
	}

	record.Status = models.DeliveryStatusPending
	record.Retryable = true

	if err := bumpCounter(ctx, tx, record.CampaignID, models.DeliveryStatusPending, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Complete closes a pending record with its terminal outcome. sent_at is
// stamped only for successful sends. Closing an already-closed record
// returns ErrNotFound, which makes duplicate outcome reports harmless.
func (r *ledgerRepository) Complete(ctx context.Context, recordID int64, status models.DeliveryStatus, errorDetail *string, retryable bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE delivery_records
		SET status = $2,
			error_detail = $3,
			retryable = $4,
			sent_at = CASE WHEN $2 = 'sent' THEN CURRENT_TIMESTAMP ELSE sent_at END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND status = 'pending'
		RETURNING campaign_id
	`

	var campaignID string
	err = tx.QueryRowContext(ctx, query, recordID, status, errorDetail, retryable).Scan(&campaignID)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to complete delivery record: %w", err)
	}

	if err := bumpCounter(ctx, tx, campaignID, models.DeliveryStatusPending, -1); err != nil {
		return err
	}
	if err := bumpCounter(ctx, tx, campaignID, status, 1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CountsByStatus reads the running counters, never the record history.
func (r *ledgerRepository) CountsByStatus(ctx context.Context, campaignID string) (models.DeliveryCounts, error) {
	query := `SELECT status, count FROM delivery_counters WHERE campaign_id = $1`

	counts := models.DeliveryCounts{}
	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return counts, fmt.Errorf("failed to get delivery counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.DeliveryStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return counts, fmt.Errorf("failed to scan delivery count: %w", err)
		}
		switch status {
		case models.DeliveryStatusPending:
			counts.Pending = count
		case models.DeliveryStatusSent:
			counts.Sent = count
		case models.DeliveryStatusFailed:
			counts.Failed = count
		case models.DeliveryStatusBounced:
			counts.Bounced = count
		}
	}

	return counts, nil
}

// List retrieves the most recent records for a campaign, newest first
func (r *ledgerRepository) List(ctx context.Context, campaignID string, limit int) ([]*models.DeliveryRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	query := `
		SELECT ` + recordColumns + `
		FROM delivery_records
		WHERE campaign_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}
	defer rows.Close()

	records := []*models.DeliveryRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// LastAttempts returns each recipient's highest-numbered record.
func (r *ledgerRepository) LastAttempts(ctx context.Context, campaignID string) (map[string]*models.DeliveryRecord, error) {
	query := `
		SELECT DISTINCT ON (recipient_identity) ` + recordColumns + `
		FROM delivery_records
		WHERE campaign_id = $1
		ORDER BY recipient_identity, attempt_number DESC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get last attempts: %w", err)
	}
	defer rows.Close()

	attempts := map[string]*models.DeliveryRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		attempts[record.RecipientIdentity] = record
	}

	return attempts, nil
}

// ListPending retrieves open records for a campaign, oldest first
func (r *ledgerRepository) ListPending(ctx context.Context, campaignID string) ([]*models.DeliveryRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM delivery_records
		WHERE campaign_id = $1 AND status = 'pending'
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending records: %w", err)
	}
	defer rows.Close()

	records := []*models.DeliveryRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery record: %w", err)
		}
		records = append(records, record)
	}

	return records, nil
}

// FindPending retrieves the open record for one recipient, if any
func (r *ledgerRepository) FindPending(ctx context.Context, campaignID, identity string) (*models.DeliveryRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM delivery_records
		WHERE campaign_id = $1 AND recipient_identity = $2 AND status = 'pending'
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, campaignID, identity))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending record: %w", err)
	}

	return record, nil
}

// LatestRecordTime returns the creation time of the newest record, or nil
// when the campaign has no records yet. Used for the completion quiet period.
func (r *ledgerRepository) LatestRecordTime(ctx context.Context, campaignID string) (*time.Time, error) {
	query := `SELECT MAX(created_at) FROM delivery_records WHERE campaign_id = $1`

	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, campaignID).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to get latest record time: %w", err)
	}

	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}
