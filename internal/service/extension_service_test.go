package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendzz/internal/models"
)

type memHeartbeats struct {
	seen map[string]time.Time
}

func (m *memHeartbeats) Heartbeat(ctx context.Context, ownerID string) error {
	m.seen[ownerID] = time.Now()
	return nil
}

func (m *memHeartbeats) Status(ctx context.Context, ownerID string) (bool, *time.Time, error) {
	t, ok := m.seen[ownerID]
	if !ok {
		return false, nil, nil
	}
	return true, &t, nil
}

func newExtensionService(channel models.Channel) (*ExtensionService, *memLedger) {
	repo := &memCampaignRepo{campaigns: map[string]*models.Campaign{
		"camp-1": {
			ID:      "camp-1",
			OwnerID: "owner-1",
			Channel: channel,
			Status:  models.CampaignStatusActive,
		},
	}}
	ledger := &memLedger{pending: map[string]*models.DeliveryRecord{
		"+5511900000001": {
			ID:                1,
			CampaignID:        "camp-1",
			RecipientIdentity: "+5511900000001",
			Status:            models.DeliveryStatusPending,
			RenderedContent:   "Oi Ana",
		},
	}}
	return NewExtensionService(repo, ledger, &memHeartbeats{seen: map[string]time.Time{}}), ledger
}

func TestPendingSends_WhatsAppOnly(t *testing.T) {
	svc, _ := newExtensionService(models.ChannelSMS)

	_, err := svc.PendingSends(context.Background(), "owner-1", "camp-1")
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict), "pull surface only serves whatsapp campaigns")
}

func TestPendingSends_ReturnsOpenRecords(t *testing.T) {
	svc, _ := newExtensionService(models.ChannelWhatsApp)

	records, err := svc.PendingSends(context.Background(), "owner-1", "camp-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Oi Ana", records[0].RenderedContent)
}

func TestReportOutcome_ClosesRecord(t *testing.T) {
	svc, ledger := newExtensionService(models.ChannelWhatsApp)

	err := svc.ReportOutcome(context.Background(), "owner-1", "camp-1", OutcomeInput{
		RecipientIdentity: "+5511900000001",
		Status:            "sent",
	})
	require.NoError(t, err)
	assert.Len(t, ledger.closed, 1)
	assert.Empty(t, ledger.pending)
}

func TestReportOutcome_DuplicateIsNoop(t *testing.T) {
	svc, ledger := newExtensionService(models.ChannelWhatsApp)
	ctx := context.Background()

	input := OutcomeInput{RecipientIdentity: "+5511900000001", Status: "sent"}
	require.NoError(t, svc.ReportOutcome(ctx, "owner-1", "camp-1", input))
	require.NoError(t, svc.ReportOutcome(ctx, "owner-1", "camp-1", input), "duplicate report must be harmless")
	assert.Len(t, ledger.closed, 1)
}

func TestReportOutcome_InvalidStatus(t *testing.T) {
	svc, _ := newExtensionService(models.ChannelWhatsApp)

	err := svc.ReportOutcome(context.Background(), "owner-1", "camp-1", OutcomeInput{
		RecipientIdentity: "+5511900000001",
		Status:            "pending",
	})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestReportOutcome_ForeignOwnerHidden(t *testing.T) {
	svc, _ := newExtensionService(models.ChannelWhatsApp)

	err := svc.ReportOutcome(context.Background(), "owner-2", "camp-1", OutcomeInput{
		RecipientIdentity: "+5511900000001",
		Status:            "sent",
	})
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestExtensionStatus_RoundTrip(t *testing.T) {
	svc, _ := newExtensionService(models.ChannelWhatsApp)
	ctx := context.Background()

	status, err := svc.Status(ctx, "owner-1")
	require.NoError(t, err)
	assert.False(t, status.Connected)

	require.NoError(t, svc.Heartbeat(ctx, "owner-1"))

	status, err = svc.Status(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.NotNil(t, status.LastSeen)
}
