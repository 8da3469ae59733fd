package adapter

import (
	"context"

	"vendzz/internal/models"
)

// WhatsAppAdapter does not send anything itself: delivery runs through an
// out-of-process browser extension that polls the pending-sends surface and
// reports outcomes back. "Sending" here means leaving the delivery record
// open so the extension can pull the payload; the record stays pending until
// the extension closes it through the delivery-outcome endpoint.
type WhatsAppAdapter struct{}

// NewWhatsAppAdapter creates the extension-bridge adapter
func NewWhatsAppAdapter() *WhatsAppAdapter {
	return &WhatsAppAdapter{}
}

// Channel returns the channel this adapter serves
func (a *WhatsAppAdapter) Channel() models.Channel {
	return models.ChannelWhatsApp
}

// Send exposes the payload for the extension to pull. The rendered payload
// is already on the pending record, so there is nothing to transmit here.
func (a *WhatsAppAdapter) Send(ctx context.Context, identity, payload string) Outcome {
	return Outcome{Status: models.DeliveryStatusPending}
}
