package adapter

import (
	"context"

	"vendzz/internal/models"
)

// Outcome is the result of one delivery attempt. Ordinary delivery failures
// are outcomes, not errors: adapters only return Go errors for broken
// configuration discovered at construction time.
type Outcome struct {
	Status      models.DeliveryStatus
	ErrorDetail string
	// Retryable marks transient provider faults (timeout, 5xx) that are
	// worth another attempt. Permanent rejections stay false.
	Retryable bool
	// ConfigError marks credential problems discovered mid-send (revoked
	// keys). The dispatcher fails the whole campaign on these.
	ConfigError bool
}

// DeliveryAdapter sends one rendered payload to one recipient identity.
// Implementations exist per channel and are safe for concurrent use.
type DeliveryAdapter interface {
	Channel() models.Channel
	Send(ctx context.Context, identity, payload string) Outcome
}

func sent() Outcome {
	return Outcome{Status: models.DeliveryStatusSent}
}

func failed(detail string, retryable bool) Outcome {
	return Outcome{Status: models.DeliveryStatusFailed, ErrorDetail: detail, Retryable: retryable}
}

func configFailure(detail string) Outcome {
	return Outcome{Status: models.DeliveryStatusFailed, ErrorDetail: detail, ConfigError: true}
}
