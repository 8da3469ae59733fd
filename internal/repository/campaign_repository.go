package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"vendzz/internal/models"
)

type campaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *sql.DB) CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `id, owner_id, channel, message_template, audience_scope, audience_min_date, source_quiz_id, status, scheduled_for, created_at, updated_at`

func scanCampaign(row interface {
	Scan(dest ...interface{}) error
}) (*models.Campaign, error) {
	campaign := &models.Campaign{}
	err := row.Scan(
		&campaign.ID,
		&campaign.OwnerID,
		&campaign.Channel,
		&campaign.MessageTemplate,
		&campaign.Audience.Scope,
		&campaign.Audience.MinDate,
		&campaign.Audience.SourceQuizID,
		&campaign.Status,
		&campaign.ScheduledFor,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return campaign, nil
}

// Create creates a new campaign
func (r *campaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	query := `
		INSERT INTO campaigns (id, owner_id, channel, message_template, audience_scope, audience_min_date, source_quiz_id, status, scheduled_for)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		campaign.ID,
		campaign.OwnerID,
		campaign.Channel,
		campaign.MessageTemplate,
		campaign.Audience.Scope,
		campaign.Audience.MinDate,
		campaign.Audience.SourceQuizID,
		campaign.Status,
		campaign.ScheduledFor,
	).Scan(&campaign.CreatedAt, &campaign.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by ID
func (r *campaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return campaign, nil
}

// List retrieves an owner's campaigns with filters and pagination
func (r *campaignRepository) List(ctx context.Context, ownerID string, filters CampaignFilters) ([]*models.Campaign, int, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT ` + campaignColumns + ` FROM campaigns WHERE owner_id = $1`)

	args := []interface{}{ownerID}
	argPos := 2

	if filters.Channel != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND channel = $%d", argPos))
		args = append(args, *filters.Channel)
		argPos++
	}

	if filters.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argPos))
		args = append(args, *filters.Status)
		argPos++
	}

	// Newest first for stable pagination
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")

	limit := filters.PageSize
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset := (filters.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}

	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1))
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	countQuery := "SELECT COUNT(*) FROM campaigns WHERE owner_id = $1"
	countArgs := []interface{}{ownerID}

	if filters.Channel != nil {
		countQuery += fmt.Sprintf(" AND channel = $%d", len(countArgs)+1)
		countArgs = append(countArgs, *filters.Channel)
	}

	if filters.Status != nil {
		countQuery += fmt.Sprintf(" AND status = $%d", len(countArgs)+1)
		countArgs = append(countArgs, *filters.Status)
	}

	var totalCount int
	err = r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	return campaigns, totalCount, nil
}

// UpdateStatus moves the campaign to the given status, refusing moves the
// lifecycle does not allow. The guard lives in the UPDATE itself so
// concurrent writers cannot race past an in-memory check: whoever loses the
// race gets ErrInvalidTransition.
func (r *campaignRepository) UpdateStatus(ctx context.Context, id string, status models.CampaignStatus) error {
	sources := models.TransitionSources(status)
	if len(sources) == 0 {
		return fmt.Errorf("campaign %s: %w: no status may move to %s", id, ErrInvalidTransition, status)
	}

	from := make([]string, len(sources))
	for i, s := range sources {
		from[i] = string(s)
	}

	query := `
		UPDATE campaigns
		SET status = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = ANY($3)
	`

	result, err := r.db.ExecContext(ctx, query, status, id, pq.Array(from))
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		var current models.CampaignStatus
		err := r.db.QueryRowContext(ctx, `SELECT status FROM campaigns WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check campaign status: %w", err)
		}
		return fmt.Errorf("campaign %s: %w: %s -> %s", id, ErrInvalidTransition, current, status)
	}

	return nil
}

// ListByStatus retrieves all campaigns in the given status
func (r *campaignRepository) ListByStatus(ctx context.Context, status models.CampaignStatus) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE status = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns by status: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}

// ListDue retrieves scheduled campaigns whose scheduled_for has passed
func (r *campaignRepository) ListDue(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND scheduled_for IS NOT NULL AND scheduled_for <= $2
		ORDER BY scheduled_for ASC
	`

	rows, err := r.db.QueryContext(ctx, query, models.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list due campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*models.Campaign{}
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		campaigns = append(campaigns, campaign)
	}

	return campaigns, nil
}
